package protocol

import (
	"bytes"
	"testing"
)

func field(v byte) []byte {
	return bytes.Repeat([]byte{v}, 8)
}

func TestParseState(t *testing.T) {
	torn := field(SwapMagic)
	torn[7] = EraseValue

	tests := []struct {
		name  string
		magic []byte
		want  State
	}{
		{"swap", field(SwapMagic), StateSwap},
		{"boot", field(BootMagic), StateBoot},
		{"erased", field(EraseValue), StateBoot},
		{"revert", field(RevertMagic), StateBoot},
		{"dfu detach", field(DFUDetachMagic), StateBoot},
		{"torn swap", torn, StateBoot},
		{"empty", nil, StateBoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseState(tt.magic); got != tt.want {
				t.Errorf("ParseState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	mixed := field(BootMagic)
	mixed[0] = SwapMagic

	tests := []struct {
		magic []byte
		want  Magic
	}{
		{field(BootMagic), MagicBoot},
		{field(SwapMagic), MagicSwap},
		{field(RevertMagic), MagicRevert},
		{field(DFUDetachMagic), MagicDFUDetach},
		{field(EraseValue), MagicErased},
		{field(0x00), MagicUnknown},
		{mixed, MagicUnknown},
		{nil, MagicUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := Classify(tt.magic); got != tt.want {
				t.Errorf("Classify(% X) = %v, want %v", tt.magic, got, tt.want)
			}
		})
	}
}

func TestIsDirty(t *testing.T) {
	if IsDirty(field(EraseValue)) {
		t.Error("erased progress field reported dirty")
	}
	if !IsDirty(field(ProgressDirty)) {
		t.Error("cleared progress field reported clean")
	}

	partial := field(EraseValue)
	partial[3] = 0x7F
	if !IsDirty(partial) {
		t.Error("a single cleared bit must count as dirty")
	}
}

func TestLayout(t *testing.T) {
	if ProgressDirty != 0x00 {
		t.Errorf("ProgressDirty = 0x%02X, want 0x00", ProgressDirty)
	}
	if got := ProgressOffset(8); got != 8 {
		t.Errorf("ProgressOffset(8) = %d, want 8", got)
	}
	if got := MinStateSize(8); got != 16 {
		t.Errorf("MinStateSize(8) = %d, want 16", got)
	}
	for _, m := range []byte{BootMagic, SwapMagic, RevertMagic, DFUDetachMagic} {
		if m == EraseValue {
			t.Errorf("magic 0x%02X collides with the erase value", m)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateBoot.String() != "boot" || StateSwap.String() != "swap" {
		t.Errorf("unexpected names %q %q", StateBoot, StateSwap)
	}
	if State(7).String() != "state(7)" {
		t.Errorf("unexpected name %q", State(7))
	}
}
