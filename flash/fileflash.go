package flash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileFlash is a NOR flash device backed by an image file.
//
// The file holds the raw device contents, so a sequence of process runs
// behaves like a sequence of boots of the same device.
type FileFlash struct {
	mu        sync.Mutex
	f         *os.File
	size      uint32
	writeSize int
	eraseSize int
}

// CreateFileFlash creates (or truncates) an image file of the given size,
// filled with EraseValue.
func CreateFileFlash(path string, size, eraseSize, writeSize int) (*FileFlash, error) {
	if err := checkGeometry(size, eraseSize, writeSize); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create flash image: %w", err)
	}

	blank := bytes.Repeat([]byte{EraseValue}, eraseSize)
	for off := 0; off < size; off += eraseSize {
		if _, err := f.WriteAt(blank, int64(off)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("initialize flash image: %w", err)
		}
	}

	return &FileFlash{f: f, size: uint32(size), writeSize: writeSize, eraseSize: eraseSize}, nil
}

// OpenFileFlash opens an existing image file. The file size must match size.
func OpenFileFlash(path string, size, eraseSize, writeSize int) (*FileFlash, error) {
	if err := checkGeometry(size, eraseSize, writeSize); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open flash image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat flash image: %w", err)
	}
	if info.Size() != int64(size) {
		_ = f.Close()
		return nil, fmt.Errorf("flash image %s is %d bytes, expected %d", path, info.Size(), size)
	}

	return &FileFlash{f: f, size: uint32(size), writeSize: writeSize, eraseSize: eraseSize}, nil
}

func checkGeometry(size, eraseSize, writeSize int) error {
	if writeSize <= 0 || eraseSize <= 0 || size <= 0 {
		return errors.New("flash geometry must be positive")
	}
	if eraseSize%writeSize != 0 || size%eraseSize != 0 {
		return fmt.Errorf("inconsistent flash geometry: size=%d erase=%d write=%d", size, eraseSize, writeSize)
	}
	return nil
}

func (f *FileFlash) WriteSize() int { return f.writeSize }

func (f *FileFlash) EraseSize() int { return f.eraseSize }

// Capacity returns the device size in bytes.
func (f *FileFlash) Capacity() uint32 { return f.size }

func (f *FileFlash) Read(offset uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkRead(f.size, offset, len(buf)); err != nil {
		return err
	}
	if _, err := f.f.ReadAt(buf, int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Op: "read", Offset: offset, Kind: KindOther, Err: err}
	}
	return nil
}

func (f *FileFlash) Write(offset uint32, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkWrite(f.size, f.writeSize, offset, len(buf)); err != nil {
		return err
	}

	// Read-modify-write so the file keeps NOR bit-clear semantics.
	cur := make([]byte, len(buf))
	if _, err := f.f.ReadAt(cur, int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Op: "write", Offset: offset, Kind: KindOther, Err: err}
	}
	program(cur, buf)

	if _, err := f.f.WriteAt(cur, int64(offset)); err != nil {
		return &Error{Op: "write", Offset: offset, Kind: KindOther, Err: err}
	}
	return nil
}

func (f *FileFlash) Erase(from, to uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkErase(f.size, f.eraseSize, from, to); err != nil {
		return err
	}

	blank := bytes.Repeat([]byte{EraseValue}, f.eraseSize)
	for off := from; off < to; off += uint32(f.eraseSize) {
		if _, err := f.f.WriteAt(blank, int64(off)); err != nil {
			return &Error{Op: "erase", Offset: off, Kind: KindOther, Err: err}
		}
	}
	return nil
}

// Sync flushes the image to stable storage.
func (f *FileFlash) Sync() error {
	return f.f.Sync()
}

// Close closes the backing file.
func (f *FileFlash) Close() error {
	return f.f.Close()
}
