package updater

import (
	"context"

	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/partition"
)

// flashOps is the I/O capability the update algorithms run against. The
// blocking and async surfaces differ only in which implementation they
// hand to the shared algorithm.
//
// Every error returned is either a *FlashError or, for the async form, the
// context error that interrupted the sequence.
type flashOps interface {
	writeSize() int
	eraseSize() int
	read(p partition.Partition, offset uint32, buf []byte) error
	write(p partition.Partition, offset uint32, buf []byte) error
	erase(p partition.Partition, from, to uint32) error
	wipe(p partition.Partition) error
}

type blockingOps struct {
	f flash.NorFlash
}

func (b blockingOps) writeSize() int { return b.f.WriteSize() }

func (b blockingOps) eraseSize() int { return b.f.EraseSize() }

func (b blockingOps) read(p partition.Partition, offset uint32, buf []byte) error {
	return wrapFlash("read", p.ReadBlocking(b.f, offset, buf))
}

func (b blockingOps) write(p partition.Partition, offset uint32, buf []byte) error {
	return wrapFlash("write", p.WriteBlocking(b.f, offset, buf))
}

func (b blockingOps) erase(p partition.Partition, from, to uint32) error {
	return wrapFlash("erase", p.EraseBlocking(b.f, from, to))
}

func (b blockingOps) wipe(p partition.Partition) error {
	return wrapFlash("erase", p.WipeBlocking(b.f))
}

// asyncOps checks ctx before submitting each operation, so a cancelled
// sequence never issues another device operation.
type asyncOps struct {
	ctx context.Context
	f   flash.AsyncNorFlash
}

func (a asyncOps) writeSize() int { return a.f.WriteSize() }

func (a asyncOps) eraseSize() int { return a.f.EraseSize() }

func (a asyncOps) read(p partition.Partition, offset uint32, buf []byte) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	return a.wrap("read", p.Read(a.ctx, a.f, offset, buf))
}

func (a asyncOps) write(p partition.Partition, offset uint32, buf []byte) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	return a.wrap("write", p.Write(a.ctx, a.f, offset, buf))
}

func (a asyncOps) erase(p partition.Partition, from, to uint32) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	return a.wrap("erase", p.Erase(a.ctx, a.f, from, to))
}

func (a asyncOps) wipe(p partition.Partition) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	return a.wrap("erase", p.Wipe(a.ctx, a.f))
}

// wrap leaves the context error of an interrupted await untouched.
func (a asyncOps) wrap(op string, err error) error {
	if err != nil && err == a.ctx.Err() {
		return err
	}
	return wrapFlash(op, err)
}

func wrapFlash(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FlashError{Op: op, Kind: flash.KindOf(err), Err: err}
}
