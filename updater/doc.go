// Package updater provides the application side of a crash-safe firmware
// update: staging an image in the DFU partition, verifying its signature
// and arming it for the bootloader.
//
// # Overview
//
// A FirmwareUpdater owns two partitions:
//   - dfu: receives the new image
//   - state: holds the magic and progress fields read by the bootloader
//     (see package protocol)
//
// The state partition is only ever changed through one sequence: mark the
// progress field dirty with a pure bit-clearing write, erase the
// partition, write the new magic. A power loss at any point leaves either
// the old state or a dirty marker the bootloader can detect.
//
// # Basic Usage
//
//	dev, _ := flash.OpenFileFlash("flash.img", 128*1024, 4096, 8)
//	u := updater.New(
//	    partition.New(0x10000, 0x20000), // dfu
//	    partition.New(0x0000, 0x1000),   // state
//	    updater.WithBackend(signature.Ed25519{}),
//	)
//
//	// Stage the image one erase block at a time
//	for off := 0; off < len(image); off += 4096 {
//	    if err := u.WriteFirmwareBlocking(dev, uint32(off), image[off:off+4096]); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
//	// Verify and arm
//	aligned := make([]byte, dev.WriteSize())
//	err := u.VerifyAndMarkUpdatedBlocking(dev, publicKey, sig, uint32(len(image)), aligned)
//
// After the swap the new image confirms itself:
//
//	state, _ := u.GetStateBlocking(dev, aligned)
//	if state == protocol.StateSwap {
//	    // run self-test, then
//	    u.MarkBootedBlocking(dev, aligned)
//	}
//
// # Blocking and Async
//
// Every operation exists as XxxBlocking taking a flash.NorFlash and as Xxx
// taking a context and a flash.AsyncNorFlash. Both run the same sequence
// of device operations. Cancelling the context is treated like a power
// loss: the sequence stops and ctx.Err() is returned.
//
// # Signature Backends
//
// The backend is chosen with WithBackend. Without one the updater uses
// signature.None and every VerifyAndMarkUpdated call fails, so an
// unverified image can never be armed by accident.
//
// # Error Handling
//
// The package provides structured error types:
//   - FlashError: a device operation failed (never retried)
//   - SignatureError: key, signature or image did not verify
//
// Caller mistakes such as a wrongly sized aligned buffer, an update
// longer than the DFU partition or firmware data shorter than one erase
// block cause a panic.
package updater
