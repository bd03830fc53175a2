// Package protocol defines the state partition layout shared by the
// firmware updater (the only writer) and the bootloader (the authoritative
// reader).
//
// # Layout
//
// With W the write size of the state flash:
//
//	[0, W)    magic     W copies of one magic byte
//	[W, 2W)   progress  EraseValue when clean, ^EraseValue when dirty
//
// A magic is recognised only when every byte of the field matches, so a
// partially erased or partially written field never reads as a valid
// request.
//
// # Magic Values
//
//   - BootMagic (0xD0): boot the active image normally
//   - SwapMagic (0xF0): swap in the staged DFU image on next boot
//   - DFUDetachMagic (0xE0): enter DFU mode on next boot
//   - RevertMagic (0xC0): written by the bootloader after a swap, meaning
//     the new image has not been confirmed yet
//
// # Progress Marker
//
// The updater clears the progress field (a pure bit-clearing write) before
// it erases and rewrites the magic. A dirty progress field together with a
// missing or erased magic tells the bootloader that a transition was cut
// short. What the bootloader does about it is its own policy.
package protocol
