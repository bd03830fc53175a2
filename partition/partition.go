// Package partition provides a bounds-scoped view of a NOR flash device.
//
// A Partition translates partition-relative offsets into absolute device
// offsets. Every operation exists twice: a blocking form taking a
// flash.NorFlash and an async form taking a flash.AsyncNorFlash and a
// context. Both forms issue exactly the same device operations.
//
// Device errors are returned unchanged and never retried. Reads, writes
// and erases that would leave the partition are refused with a
// *flash.Error of kind KindOutOfBounds before reaching the device.
//
// The async forms return only once the submitted device operation has
// finished, even when ctx is cancelled; cancellation takes effect at the
// next operation boundary.
package partition

import (
	"context"
	"fmt"

	"github.com/moffa90/go-fwupdate/flash"
)

// Partition is the address range [From, To) of a flash device.
type Partition struct {
	From uint32
	To   uint32
}

// New creates a partition. Panics if from > to.
func New(from, to uint32) Partition {
	if from > to {
		panic(fmt.Sprintf("partition start 0x%X is past its end 0x%X", from, to))
	}
	return Partition{From: from, To: to}
}

// Size returns the partition length in bytes.
func (p Partition) Size() uint32 {
	return p.To - p.From
}

// Overlaps reports whether p and o share at least one byte.
func (p Partition) Overlaps(o Partition) bool {
	if p.Size() == 0 || o.Size() == 0 {
		return false
	}
	return p.From < o.To && o.From < p.To
}

func (p Partition) String() string {
	return fmt.Sprintf("0x%08X-0x%08X", p.From, p.To)
}

func (p Partition) checkSpan(op string, offset uint32, n uint64) error {
	if uint64(offset)+n > uint64(p.Size()) {
		return &flash.Error{Op: op, Offset: p.From + offset, Kind: flash.KindOutOfBounds}
	}
	return nil
}

// ReadBlocking reads len(buf) bytes at the partition-relative offset.
func (p Partition) ReadBlocking(f flash.NorFlash, offset uint32, buf []byte) error {
	if err := p.checkSpan("read", offset, uint64(len(buf))); err != nil {
		return err
	}
	return f.Read(p.From+offset, buf)
}

// WriteBlocking writes buf at the partition-relative offset.
func (p Partition) WriteBlocking(f flash.NorFlash, offset uint32, buf []byte) error {
	if err := p.checkSpan("write", offset, uint64(len(buf))); err != nil {
		return err
	}
	return f.Write(p.From+offset, buf)
}

// EraseBlocking erases the partition-relative range [from, to).
func (p Partition) EraseBlocking(f flash.NorFlash, from, to uint32) error {
	if from > to {
		return &flash.Error{Op: "erase", Offset: p.From + from, Kind: flash.KindOutOfBounds}
	}
	if err := p.checkSpan("erase", from, uint64(to-from)); err != nil {
		return err
	}
	return f.Erase(p.From+from, p.From+to)
}

// WipeBlocking erases the whole partition.
func (p Partition) WipeBlocking(f flash.NorFlash) error {
	return f.Erase(p.From, p.To)
}

// Read is the async form of ReadBlocking.
func (p Partition) Read(ctx context.Context, f flash.AsyncNorFlash, offset uint32, buf []byte) error {
	if err := p.checkSpan("read", offset, uint64(len(buf))); err != nil {
		return err
	}
	return await(ctx, f.Read(p.From+offset, buf))
}

// Write is the async form of WriteBlocking.
func (p Partition) Write(ctx context.Context, f flash.AsyncNorFlash, offset uint32, buf []byte) error {
	if err := p.checkSpan("write", offset, uint64(len(buf))); err != nil {
		return err
	}
	return await(ctx, f.Write(p.From+offset, buf))
}

// Erase is the async form of EraseBlocking.
func (p Partition) Erase(ctx context.Context, f flash.AsyncNorFlash, from, to uint32) error {
	if from > to {
		return &flash.Error{Op: "erase", Offset: p.From + from, Kind: flash.KindOutOfBounds}
	}
	if err := p.checkSpan("erase", from, uint64(to-from)); err != nil {
		return err
	}
	return await(ctx, f.Erase(p.From+from, p.From+to))
}

// Wipe is the async form of WipeBlocking.
func (p Partition) Wipe(ctx context.Context, f flash.AsyncNorFlash) error {
	return await(ctx, f.Erase(p.From, p.To))
}

// await suspends until the operation completes or ctx is done. On
// cancellation it still waits for the submitted operation to finish, so
// the caller's buffer is never touched after await returns.
func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}
}
