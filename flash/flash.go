package flash

import (
	"errors"
	"fmt"
)

// EraseValue is the byte value of a freshly erased NOR flash cell.
const EraseValue = 0xFF

// NorFlash is a blocking NOR flash device.
//
// Writes can only clear bits; only Erase can set them again, and only for
// whole EraseSize blocks. Write offsets and lengths must be multiples of
// WriteSize, erase bounds multiples of EraseSize.
type NorFlash interface {
	// WriteSize is the write granularity in bytes
	WriteSize() int

	// EraseSize is the erase granularity in bytes
	EraseSize() int

	// Read fills buf starting at the absolute offset
	Read(offset uint32, buf []byte) error

	// Write programs buf starting at the absolute offset
	Write(offset uint32, buf []byte) error

	// Erase resets [from, to) to EraseValue
	Erase(from, to uint32) error
}

// AsyncNorFlash is the asynchronous form of NorFlash.
//
// Each operation is submitted immediately and completes by sending exactly
// one value (nil on success) on the returned channel. Callers must not
// touch buf until the operation has completed.
type AsyncNorFlash interface {
	WriteSize() int
	EraseSize() int
	Read(offset uint32, buf []byte) <-chan error
	Write(offset uint32, buf []byte) <-chan error
	Erase(from, to uint32) <-chan error
}

// ErrorKind categorizes flash failures.
type ErrorKind int

const (
	// KindOther is any failure that is not an alignment or bounds violation
	KindOther ErrorKind = iota

	// KindNotAligned means an offset or length did not meet the device alignment
	KindNotAligned

	// KindOutOfBounds means the access fell outside the device or partition
	KindOutOfBounds
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotAligned:
		return "not aligned"
	case KindOutOfBounds:
		return "out of bounds"
	default:
		return "other"
	}
}

// Error is a flash failure reported by one of the devices in this package.
type Error struct {
	// Op is the failing operation: "read", "write" or "erase"
	Op string

	// Offset is the absolute offset of the failing access
	Offset uint32

	// Kind categorizes the failure
	Kind ErrorKind

	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flash %s at 0x%08X: %s: %v", e.Op, e.Offset, e.Kind, e.Err)
	}
	return fmt.Sprintf("flash %s at 0x%08X: %s", e.Op, e.Offset, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind returns the error category.
func (e *Error) ErrorKind() ErrorKind {
	return e.Kind
}

// kinder is implemented by device errors that carry their own category.
type kinder interface {
	ErrorKind() ErrorKind
}

// KindOf returns the category of a device error. Errors that do not carry
// a category are reported as KindOther.
func KindOf(err error) ErrorKind {
	var k kinder
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindOther
}

// checkWrite validates alignment and bounds of a write on a device of the given capacity.
func checkWrite(capacity uint32, writeSize int, offset uint32, n int) error {
	if offset%uint32(writeSize) != 0 || n%writeSize != 0 {
		return &Error{Op: "write", Offset: offset, Kind: KindNotAligned}
	}
	if uint64(offset)+uint64(n) > uint64(capacity) {
		return &Error{Op: "write", Offset: offset, Kind: KindOutOfBounds}
	}
	return nil
}

// checkErase validates alignment and bounds of an erase on a device of the given capacity.
func checkErase(capacity uint32, eraseSize int, from, to uint32) error {
	if from > to || to > capacity {
		return &Error{Op: "erase", Offset: from, Kind: KindOutOfBounds}
	}
	if from%uint32(eraseSize) != 0 || to%uint32(eraseSize) != 0 {
		return &Error{Op: "erase", Offset: from, Kind: KindNotAligned}
	}
	return nil
}

// checkRead validates bounds of a read on a device of the given capacity.
func checkRead(capacity uint32, offset uint32, n int) error {
	if uint64(offset)+uint64(n) > uint64(capacity) {
		return &Error{Op: "read", Offset: offset, Kind: KindOutOfBounds}
	}
	return nil
}

// program applies NOR write semantics: bits can only be cleared.
func program(dst, src []byte) {
	for i, b := range src {
		dst[i] &= b
	}
}
