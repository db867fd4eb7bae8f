// Package blockio provides exact, positioned block and byte I/O over a
// VSFS image. Every operation is a straight-line synchronous positioned
// read or write; a short read or write is treated as a fatal I/O error,
// never silently retried or papered over.
package blockio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/coldforge/vsfsjournal/internal/layout"
)

// BlockSize is re-exported for callers that only need block-level I/O
// without reaching into the layout package.
const BlockSize = layout.BlockSize

// ErrShortIO is wrapped into every error produced when a positioned read or
// write returns fewer bytes than requested.
var ErrShortIO = errors.New("blockio: short read or write")

// Device is the fixed-size-block abstraction every component above it is
// built on. Implementations must perform exact positioned I/O: no partial
// reads or writes may ever be returned without an error.
type Device interface {
	ReadAt(buf []byte, off int64) error
	WriteAt(buf []byte, off int64) error
	ReadBlock(blockNo uint32, buf *[BlockSize]byte) error
	WriteBlock(blockNo uint32, buf *[BlockSize]byte) error
	Sync() error
	Close() error
}

// FileDevice is a Device backed by a real OS file, opened for positioned
// (pread/pwrite-style) access via os.File.ReadAt/WriteAt.
type FileDevice struct {
	f *os.File
}

// OpenFile opens (without creating) the image at path for read/write
// positioned access.
func OpenFile(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockio: open %q: %w", path, err)
	}
	return &FileDevice{f: f}, nil
}

// CreateFile creates (or truncates) the image at path for read/write
// positioned access. Used by tests and by tooling that formats a fresh
// image; the journal/create/install paths never create the image
// themselves.
func CreateFile(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockio: create %q: %w", path, err)
	}
	return &FileDevice{f: f}, nil
}

func (d *FileDevice) ReadAt(buf []byte, off int64) error {
	n, err := d.f.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return fmt.Errorf("blockio: read at %d (%d bytes): %w", off, len(buf), err)
	}
	if n != len(buf) {
		return fmt.Errorf("blockio: read at %d: got %d of %d bytes: %w", off, n, len(buf), ErrShortIO)
	}
	return nil
}

func (d *FileDevice) WriteAt(buf []byte, off int64) error {
	n, err := d.f.WriteAt(buf, off)
	if err != nil {
		return fmt.Errorf("blockio: write at %d (%d bytes): %w", off, len(buf), err)
	}
	if n != len(buf) {
		return fmt.Errorf("blockio: write at %d: wrote %d of %d bytes: %w", off, n, len(buf), ErrShortIO)
	}
	return nil
}

func (d *FileDevice) ReadBlock(blockNo uint32, buf *[BlockSize]byte) error {
	return d.ReadAt(buf[:], int64(blockNo)*BlockSize)
}

func (d *FileDevice) WriteBlock(blockNo uint32, buf *[BlockSize]byte) error {
	return d.WriteAt(buf[:], int64(blockNo)*BlockSize)
}

func (d *FileDevice) Sync() error  { return d.f.Sync() }
func (d *FileDevice) Close() error { return d.f.Close() }

// MemDevice is an in-memory Device, grown on demand. It is used by tests
// that exercise the journal/overlay/install logic without touching the
// filesystem, and gives byte-for-byte identical semantics to FileDevice
// for every operation that matters to this package's callers.
type MemDevice struct {
	data []byte
}

// NewMemDevice creates a zero-filled in-memory device. size pre-sizes the
// backing buffer to exactly size bytes (no rounding to whole blocks); 0 is
// fine, the buffer grows as writes extend past the end.
func NewMemDevice(size int64) *MemDevice {
	return &MemDevice{data: make([]byte, size)}
}

func (d *MemDevice) ReadAt(buf []byte, off int64) error {
	if off < 0 || off+int64(len(buf)) > int64(len(d.data)) {
		return fmt.Errorf("blockio: mem read at %d (%d bytes): %w", off, len(buf), ErrShortIO)
	}
	copy(buf, d.data[off:off+int64(len(buf))])
	return nil
}

func (d *MemDevice) WriteAt(buf []byte, off int64) error {
	end := off + int64(len(buf))
	if end > int64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[off:end], buf)
	return nil
}

func (d *MemDevice) ReadBlock(blockNo uint32, buf *[BlockSize]byte) error {
	return d.ReadAt(buf[:], int64(blockNo)*BlockSize)
}

func (d *MemDevice) WriteBlock(blockNo uint32, buf *[BlockSize]byte) error {
	return d.WriteAt(buf[:], int64(blockNo)*BlockSize)
}

func (d *MemDevice) Sync() error  { return nil }
func (d *MemDevice) Close() error { return nil }

// Bytes returns a copy of the full backing buffer, for test assertions.
func (d *MemDevice) Bytes() []byte {
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}
