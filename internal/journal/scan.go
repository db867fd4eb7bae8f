package journal

import (
	"encoding/binary"

	"github.com/coldforge/vsfsjournal/internal/layout"
)

// EventKind distinguishes the two record types a scan can yield.
type EventKind int

const (
	EventData EventKind = iota
	EventCommit
)

// Event is one record observed by Scan: either a block image pending
// commit, or a commit marker terminating the run of DATA events since the
// previous one.
type Event struct {
	Kind    EventKind
	BlockNo uint32
	Image   [layout.BlockSize]byte
}

// Scan is the single stateless scanner shared by the committed-view
// overlay and the installer: a pure function of the record area's bytes
// (read through s) and nbytesUsed, returning the sequence of events up to
// whichever stop condition is hit first. None of the stop conditions below
// are errors — a truncated tail or a malformed trailing record is the
// expected shape of a torn, not-yet-committed transaction, and is simply
// where the scan ends. Only a genuine I/O failure is returned as an error.
func Scan(s *Store, nbytesUsed uint32) ([]Event, error) {
	var events []Event
	pos := uint32(HeaderSize)

	for pos+RecHeaderSize <= nbytesUsed {
		var rh [RecHeaderSize]byte
		if err := s.ReadAt(pos, rh[:]); err != nil {
			return nil, err
		}
		recType := binary.LittleEndian.Uint16(rh[0:2])
		recSize := binary.LittleEndian.Uint16(rh[2:4])

		if recSize < RecHeaderSize {
			break
		}
		if pos+uint32(recSize) > nbytesUsed {
			break // truncated tail: treat as uncommitted
		}

		switch recType {
		case RecTypeData:
			if recSize != uint16(DataRecordSize) {
				return events, nil
			}
			var ev Event
			ev.Kind = EventData
			var bn [4]byte
			if err := s.ReadAt(pos+RecHeaderSize, bn[:]); err != nil {
				return nil, err
			}
			ev.BlockNo = binary.LittleEndian.Uint32(bn[:])
			if err := s.ReadAt(pos+RecHeaderSize+4, ev.Image[:]); err != nil {
				return nil, err
			}
			events = append(events, ev)

		case RecTypeCommit:
			if recSize != uint16(CommitRecordSize) {
				return events, nil
			}
			events = append(events, Event{Kind: EventCommit})

		default:
			return events, nil
		}

		pos += uint32(recSize)
	}

	return events, nil
}
