// Package journal implements the write-ahead journal store: its on-disk
// header, the append/commit protocol, the record codec, and the shared
// scanner that both the committed-view overlay and the installer replay
// from. Nothing in this package ever touches a live VSFS block outside
// the journal region itself.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/layout"
)

// Journal region geometry and record layout, fixed by the on-disk format.
const (
	HeaderSize = 8 // magic(4) + nbytes_used(4)
	Magic      = 0x4A524E4C

	RecHeaderSize    = 4 // type(2) + size(2)
	DataRecordSize   = RecHeaderSize + 4 + layout.BlockSize // 4104
	CommitRecordSize = RecHeaderSize                        // 4

	RecTypeData   uint16 = 1
	RecTypeCommit uint16 = 2
)

// Sentinel errors surfaced at the CLI boundary, one per distinct journal
// failure kind.
var (
	ErrJournalFull    = errors.New("journal: transaction would exceed journal capacity")
	ErrJournalMissing = errors.New("journal: no valid journal header present")
	ErrTxnTooLarge    = errors.New("journal: more than 64 DATA records between commits")
)

// Header is the 8-byte on-disk journal header. The in-memory value is kept
// equal to the on-disk value at every function boundary in this package:
// callers always get back the header that was actually persisted.
type Header struct {
	Magic      uint32
	NBytesUsed uint32
}

// Valid reports whether h satisfies the predicates that distinguish a real
// header from an absent or corrupt one.
func (h Header) Valid() bool {
	return h.Magic == Magic && h.NBytesUsed >= HeaderSize && h.NBytesUsed <= CapacityBytes()
}

func decodeHeader(buf []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		NBytesUsed: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

func (h Header) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.NBytesUsed)
}

// CapacityBytes is the fixed journal region size: JournalBlocks * BlockSize.
func CapacityBytes() uint32 {
	return layout.JournalBlocks * layout.BlockSize
}

// Store owns the journal region of an image: the header plus the
// append-only record area immediately after it. It never reads or writes
// any block outside blocks [JournalStartBlock, JournalStartBlock+JournalBlocks).
type Store struct {
	dev  blockio.Device
	base int64
}

// NewStore wraps a block device's journal region.
func NewStore(dev blockio.Device) *Store {
	return &Store{dev: dev, base: int64(layout.JournalStartBlock) * layout.BlockSize}
}

// ReadAt performs a byte-granular positioned read relative to the start of
// the journal region, for use by the record scanner.
func (s *Store) ReadAt(pos uint32, buf []byte) error {
	return s.dev.ReadAt(buf, s.base+int64(pos))
}

// HeaderRead returns the raw on-disk header without validating it.
func (s *Store) HeaderRead() (Header, error) {
	var buf [HeaderSize]byte
	if err := s.dev.ReadAt(buf[:], s.base); err != nil {
		return Header{}, fmt.Errorf("journal: read header: %w", err)
	}
	return decodeHeader(buf[:]), nil
}

// HeaderWrite persists h as the 8-byte on-disk header.
func (s *Store) HeaderWrite(h Header) error {
	var buf [HeaderSize]byte
	h.encode(buf[:])
	if err := s.dev.WriteAt(buf[:], s.base); err != nil {
		return fmt.Errorf("journal: write header: %w", err)
	}
	return nil
}

// ClearRegion zeroes every block of the journal region.
func (s *Store) ClearRegion() error {
	var zero [layout.BlockSize]byte
	for i := uint32(0); i < layout.JournalBlocks; i++ {
		if err := s.dev.WriteBlock(layout.JournalStartBlock+i, &zero); err != nil {
			return fmt.Errorf("journal: clear region block %d: %w", layout.JournalStartBlock+i, err)
		}
	}
	return nil
}

func freshHeader() Header {
	return Header{Magic: Magic, NBytesUsed: HeaderSize}
}

// InitIfAbsent reads the header; if it is invalid (absent/corrupt per
// Header.Valid), the journal region is zeroed and a fresh header is
// written. Returns the current (possibly freshly written) header.
func (s *Store) InitIfAbsent() (Header, error) {
	h, err := s.HeaderRead()
	if err != nil {
		return Header{}, err
	}
	if h.Valid() {
		return h, nil
	}
	if err := s.ClearRegion(); err != nil {
		return Header{}, err
	}
	fresh := freshHeader()
	if err := s.HeaderWrite(fresh); err != nil {
		return Header{}, err
	}
	return fresh, nil
}

// RequirePresent reads the header and fails with ErrJournalMissing if it is
// invalid.
func (s *Store) RequirePresent() (Header, error) {
	h, err := s.HeaderRead()
	if err != nil {
		return Header{}, err
	}
	if !h.Valid() {
		return Header{}, ErrJournalMissing
	}
	return h, nil
}

// AppendBytes appends src to the record area, failing with ErrJournalFull if
// it would not fit, and otherwise persisting the updated header (with
// nbytes_used advanced by len(src)) immediately after writing the bytes.
// This ordering — bytes first, header second — is the crash-consistency
// anchor: a crash between the two leaves those bytes invisible to any
// future scan, since nbytes_used still points to before them.
func (s *Store) AppendBytes(h *Header, src []byte) error {
	n := uint32(len(src))
	if h.NBytesUsed+n > CapacityBytes() {
		return ErrJournalFull
	}
	off := s.base + int64(h.NBytesUsed)
	if err := s.dev.WriteAt(src, off); err != nil {
		return err
	}
	h.NBytesUsed += n
	return s.HeaderWrite(*h)
}

// AppendDataRecord appends a DATA record: record header, block number,
// then the full post-mutation block image.
func AppendDataRecord(s *Store, h *Header, blockNo uint32, image []byte) error {
	if len(image) != layout.BlockSize {
		return fmt.Errorf("journal: data record image must be %d bytes, got %d", layout.BlockSize, len(image))
	}
	var rh [RecHeaderSize]byte
	binary.LittleEndian.PutUint16(rh[0:2], RecTypeData)
	binary.LittleEndian.PutUint16(rh[2:4], uint16(DataRecordSize))
	if err := s.AppendBytes(h, rh[:]); err != nil {
		return err
	}
	var bn [4]byte
	binary.LittleEndian.PutUint32(bn[:], blockNo)
	if err := s.AppendBytes(h, bn[:]); err != nil {
		return err
	}
	return s.AppendBytes(h, image)
}

// AppendCommitRecord appends the COMMIT record terminating a transaction.
func AppendCommitRecord(s *Store, h *Header) error {
	var rh [RecHeaderSize]byte
	binary.LittleEndian.PutUint16(rh[0:2], RecTypeCommit)
	binary.LittleEndian.PutUint16(rh[2:4], uint16(CommitRecordSize))
	return s.AppendBytes(h, rh[:])
}
