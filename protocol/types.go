package protocol

import "fmt"

// State is the application-visible projection of the magic field.
type State int

const (
	// StateBoot means no swap is requested
	StateBoot State = iota

	// StateSwap means a swap is requested, or the bootloader just swapped
	// and the new image must be confirmed with MarkBooted
	StateSwap
)

func (s State) String() string {
	switch s {
	case StateBoot:
		return "boot"
	case StateSwap:
		return "swap"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState returns StateSwap iff every byte of magic equals SwapMagic.
// An empty field is StateBoot.
func ParseState(magic []byte) State {
	if len(magic) > 0 && Uniform(magic, SwapMagic) {
		return StateSwap
	}
	return StateBoot
}

// Uniform reports whether every byte of field equals v.
func Uniform(field []byte, v byte) bool {
	for _, b := range field {
		if b != v {
			return false
		}
	}
	return true
}

// IsDirty reports whether a progress field differs from the erase value.
func IsDirty(progress []byte) bool {
	return !Uniform(progress, EraseValue)
}

// Magic classifies the full content of a magic field.
type Magic int

const (
	// MagicUnknown is a mixed or unrecognised field, e.g. a torn write
	MagicUnknown Magic = iota
	MagicErased
	MagicBoot
	MagicSwap
	MagicRevert
	MagicDFUDetach
)

func (m Magic) String() string {
	switch m {
	case MagicErased:
		return "erased"
	case MagicBoot:
		return "boot"
	case MagicSwap:
		return "swap"
	case MagicRevert:
		return "revert"
	case MagicDFUDetach:
		return "dfu-detach"
	default:
		return "unknown"
	}
}

// Classify reports which magic, if any, fills the whole field.
func Classify(magic []byte) Magic {
	if len(magic) == 0 {
		return MagicUnknown
	}

	switch {
	case Uniform(magic, BootMagic):
		return MagicBoot
	case Uniform(magic, SwapMagic):
		return MagicSwap
	case Uniform(magic, RevertMagic):
		return MagicRevert
	case Uniform(magic, DFUDetachMagic):
		return MagicDFUDetach
	case Uniform(magic, EraseValue):
		return MagicErased
	default:
		return MagicUnknown
	}
}
