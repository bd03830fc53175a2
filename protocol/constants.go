package protocol

// Magic values stored in the magic field.
const (
	// BootMagic requests a normal boot of the active image
	BootMagic byte = 0xD0

	// SwapMagic requests a swap of the staged DFU image on next boot
	SwapMagic byte = 0xF0

	// RevertMagic is written by the bootloader after it swapped images
	RevertMagic byte = 0xC0

	// DFUDetachMagic requests the bootloader to enter DFU mode
	DFUDetachMagic byte = 0xE0
)

// Progress marker values.
const (
	// EraseValue is the state flash content after an erase (clean marker)
	EraseValue byte = 0xFF

	// ProgressDirty marks a transition in flight
	ProgressDirty = ^EraseValue
)

// MagicOffset is the partition-relative offset of the magic field.
const MagicOffset uint32 = 0

// ProgressOffset returns the partition-relative offset of the progress
// field for a flash with the given write size.
func ProgressOffset(writeSize int) uint32 {
	return uint32(writeSize)
}

// MinStateSize returns the smallest state partition that holds both fields.
func MinStateSize(writeSize int) uint32 {
	return 2 * uint32(writeSize)
}
