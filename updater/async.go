package updater

import (
	"context"

	"github.com/moffa90/go-fwupdate/digest"
	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/partition"
	"github.com/moffa90/go-fwupdate/protocol"
)

// The async surface issues exactly the same device operations as the
// blocking one. Cancelling ctx stops the sequence before the next device
// operation and returns ctx.Err(); the state partition is then left as a
// power loss at that point would leave it.

// GetState is the async form of GetStateBlocking.
func (u *FirmwareUpdater) GetState(ctx context.Context, f flash.AsyncNorFlash, aligned []byte) (protocol.State, error) {
	return u.getState(asyncOps{ctx, f}, aligned)
}

// Inspect is the async form of InspectBlocking.
func (u *FirmwareUpdater) Inspect(ctx context.Context, f flash.AsyncNorFlash, aligned []byte) (Snapshot, error) {
	return u.inspect(asyncOps{ctx, f}, aligned)
}

// MarkUpdated is the async form of MarkUpdatedBlocking.
func (u *FirmwareUpdater) MarkUpdated(ctx context.Context, f flash.AsyncNorFlash, aligned []byte) error {
	return u.setMagic(asyncOps{ctx, f}, aligned, protocol.SwapMagic)
}

// MarkBooted is the async form of MarkBootedBlocking.
func (u *FirmwareUpdater) MarkBooted(ctx context.Context, f flash.AsyncNorFlash, aligned []byte) error {
	return u.setMagic(asyncOps{ctx, f}, aligned, protocol.BootMagic)
}

// MarkDFU is the async form of MarkDFUBlocking.
func (u *FirmwareUpdater) MarkDFU(ctx context.Context, f flash.AsyncNorFlash, aligned []byte) error {
	return u.setMagic(asyncOps{ctx, f}, aligned, protocol.DFUDetachMagic)
}

// Hash is the async form of HashBlocking.
func (u *FirmwareUpdater) Hash(ctx context.Context, f flash.AsyncNorFlash, updateLen uint32, chunkBuf []byte, newDigest digest.Factory, output []byte) error {
	return u.hash(asyncOps{ctx, f}, updateLen, chunkBuf, newDigest, output)
}

// VerifyAndMarkUpdated is the async form of VerifyAndMarkUpdatedBlocking.
func (u *FirmwareUpdater) VerifyAndMarkUpdated(ctx context.Context, f flash.AsyncNorFlash, publicKey, signature []byte, updateLen uint32, aligned []byte) error {
	return u.verifyAndMarkUpdated(asyncOps{ctx, f}, publicKey, signature, updateLen, aligned)
}

// WriteFirmware is the async form of WriteFirmwareBlocking.
func (u *FirmwareUpdater) WriteFirmware(ctx context.Context, f flash.AsyncNorFlash, offset uint32, data []byte) error {
	return u.writeFirmware(asyncOps{ctx, f}, offset, data)
}

// PrepareUpdate is the async form of PrepareUpdateBlocking.
func (u *FirmwareUpdater) PrepareUpdate(ctx context.Context, f flash.AsyncNorFlash) (partition.Partition, error) {
	return u.prepareUpdate(asyncOps{ctx, f})
}

// ReadDFU is the async form of ReadDFUBlocking.
func (u *FirmwareUpdater) ReadDFU(ctx context.Context, f flash.AsyncNorFlash, offset uint32, buf []byte) error {
	return asyncOps{ctx, f}.read(u.dfu, offset, buf)
}
