package flash

import (
	"bytes"
	"fmt"
	"sync"
)

// OpKind identifies a device operation in the MemFlash log.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpErase
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpErase:
		return "erase"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one logged device operation. For erases Len is to-from.
type Op struct {
	Kind   OpKind
	Offset uint32
	Len    int
}

func (o Op) String() string {
	return fmt.Sprintf("%s@0x%X+%d", o.Kind, o.Offset, o.Len)
}

// FaultFunc is consulted before every operation. A non-nil return aborts
// the operation before it touches storage, which is how tests simulate a
// power cut at a precise point.
type FaultFunc func(op Op) error

// MemFlash is an in-memory NOR flash device.
//
// MemFlash is safe for concurrent use.
type MemFlash struct {
	mu        sync.Mutex
	data      []byte
	writeSize int
	eraseSize int
	fault     FaultFunc
	ops       []Op
}

// NewMemFlash creates an erased device of the given geometry.
// Panics if the geometry is inconsistent.
func NewMemFlash(size, eraseSize, writeSize int) *MemFlash {
	if writeSize <= 0 || eraseSize <= 0 || size <= 0 {
		panic("flash geometry must be positive")
	}
	if eraseSize%writeSize != 0 || size%eraseSize != 0 {
		panic(fmt.Sprintf("inconsistent flash geometry: size=%d erase=%d write=%d", size, eraseSize, writeSize))
	}

	return &MemFlash{
		data:      bytes.Repeat([]byte{EraseValue}, size),
		writeSize: writeSize,
		eraseSize: eraseSize,
	}
}

func (m *MemFlash) WriteSize() int { return m.writeSize }

func (m *MemFlash) EraseSize() int { return m.eraseSize }

// Capacity returns the device size in bytes.
func (m *MemFlash) Capacity() uint32 {
	return uint32(len(m.data))
}

func (m *MemFlash) Read(offset uint32, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(Op{Kind: OpRead, Offset: offset, Len: len(buf)}); err != nil {
		return err
	}
	if err := checkRead(m.Capacity(), offset, len(buf)); err != nil {
		return err
	}

	copy(buf, m.data[offset:])
	return nil
}

func (m *MemFlash) Write(offset uint32, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(Op{Kind: OpWrite, Offset: offset, Len: len(buf)}); err != nil {
		return err
	}
	if err := checkWrite(m.Capacity(), m.writeSize, offset, len(buf)); err != nil {
		return err
	}

	program(m.data[offset:], buf)
	return nil
}

func (m *MemFlash) Erase(from, to uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(Op{Kind: OpErase, Offset: from, Len: int(to) - int(from)}); err != nil {
		return err
	}
	if err := checkErase(m.Capacity(), m.eraseSize, from, to); err != nil {
		return err
	}

	for i := from; i < to; i++ {
		m.data[i] = EraseValue
	}
	return nil
}

// begin runs the fault hook and records the operation if it was not vetoed.
func (m *MemFlash) begin(op Op) error {
	if m.fault != nil {
		if err := m.fault(op); err != nil {
			return &Error{Op: op.Kind.String(), Offset: op.Offset, Kind: KindOf(err), Err: err}
		}
	}
	m.ops = append(m.ops, op)
	return nil
}

// SetFault installs (or with nil, removes) the fault hook.
func (m *MemFlash) SetFault(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = f
}

// Ops returns a copy of the operation log.
func (m *MemFlash) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.ops...)
}

// ResetOps clears the operation log.
func (m *MemFlash) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

// Count returns how many logged operations have the given kind.
func (m *MemFlash) Count(kind OpKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, op := range m.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Bytes returns a copy of [from, to) of the raw storage, bypassing the
// fault hook and the log.
func (m *MemFlash) Bytes(from, to uint32) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data[from:to]...)
}
