// Package flash defines the NOR flash device contract consumed by the
// partition and updater packages, and ships three implementations:
//
//   - MemFlash: an in-memory NOR device with an operation log and fault
//     injection, used to simulate power loss in tests
//   - FileFlash: a NOR device backed by an image file, so state survives
//     across process runs (the fwupdate tool uses it as a stand-in device)
//   - Async: an adapter turning any blocking NorFlash into an AsyncNorFlash
//
// # Device Semantics
//
// Devices follow NOR rules: a write can only clear bits, an erase sets a
// whole EraseSize-aligned block back to EraseValue (0xFF). Writing 0x00
// over an erased cell therefore never needs an erase cycle, which is what
// the updater's progress marker relies on.
//
// # Errors
//
// Device errors may implement ErrorKind() ErrorKind. KindOf extracts the
// category and falls back to KindOther.
package flash
