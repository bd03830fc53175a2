package updater

import (
	"github.com/moffa90/go-fwupdate/digest"
	"github.com/moffa90/go-fwupdate/flash"
	"github.com/moffa90/go-fwupdate/partition"
	"github.com/moffa90/go-fwupdate/protocol"
)

// GetStateBlocking reads the magic field. StateSwap means the bootloader
// has just swapped in a new image, which should run its self-test before
// confirming with MarkBootedBlocking.
//
// aligned is scratch space of exactly f.WriteSize() bytes.
func (u *FirmwareUpdater) GetStateBlocking(f flash.NorFlash, aligned []byte) (protocol.State, error) {
	return u.getState(blockingOps{f}, aligned)
}

// InspectBlocking decodes both state partition fields.
func (u *FirmwareUpdater) InspectBlocking(f flash.NorFlash, aligned []byte) (Snapshot, error) {
	return u.inspect(blockingOps{f}, aligned)
}

// MarkUpdatedBlocking requests a swap on next boot without verifying the
// staged image. Prefer VerifyAndMarkUpdatedBlocking.
func (u *FirmwareUpdater) MarkUpdatedBlocking(f flash.NorFlash, aligned []byte) error {
	return u.setMagic(blockingOps{f}, aligned, protocol.SwapMagic)
}

// MarkBootedBlocking confirms the running image so the bootloader will not
// revert it.
func (u *FirmwareUpdater) MarkBootedBlocking(f flash.NorFlash, aligned []byte) error {
	return u.setMagic(blockingOps{f}, aligned, protocol.BootMagic)
}

// MarkDFUBlocking asks the bootloader to enter DFU mode on next boot.
func (u *FirmwareUpdater) MarkDFUBlocking(f flash.NorFlash, aligned []byte) error {
	return u.setMagic(blockingOps{f}, aligned, protocol.DFUDetachMagic)
}

// HashBlocking digests the first updateLen bytes of the DFU partition into
// output, reading len(chunkBuf) bytes at a time. output must be exactly
// the digest size.
func (u *FirmwareUpdater) HashBlocking(f flash.NorFlash, updateLen uint32, chunkBuf []byte, newDigest digest.Factory, output []byte) error {
	return u.hash(blockingOps{f}, updateLen, chunkBuf, newDigest, output)
}

// VerifyAndMarkUpdatedBlocking verifies the signature of the first
// updateLen bytes of the DFU partition with the configured backend and,
// only if it holds, requests a swap on next boot. f must hold both
// partitions.
//
// Any verification problem is reported as a *SignatureError and leaves the
// state partition untouched.
func (u *FirmwareUpdater) VerifyAndMarkUpdatedBlocking(f flash.NorFlash, publicKey, signature []byte, updateLen uint32, aligned []byte) error {
	return u.verifyAndMarkUpdated(blockingOps{f}, publicKey, signature, updateLen, aligned)
}

// WriteFirmwareBlocking erases [offset, offset+len(data)) of the DFU
// partition and writes data there. data must span at least one erase block
// and offset and length must be erase aligned. It fails with a *StateError
// while a swap is pending.
func (u *FirmwareUpdater) WriteFirmwareBlocking(f flash.NorFlash, offset uint32, data []byte) error {
	return u.writeFirmware(blockingOps{f}, offset, data)
}

// PrepareUpdateBlocking erases the whole DFU partition and returns it for
// bulk writes that need no further erase bookkeeping. It fails with a
// *StateError while a swap is pending.
func (u *FirmwareUpdater) PrepareUpdateBlocking(f flash.NorFlash) (partition.Partition, error) {
	return u.prepareUpdate(blockingOps{f})
}

// ReadDFUBlocking reads the staged image at a DFU-relative offset.
func (u *FirmwareUpdater) ReadDFUBlocking(f flash.NorFlash, offset uint32, buf []byte) error {
	return blockingOps{f}.read(u.dfu, offset, buf)
}
