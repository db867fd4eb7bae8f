package journal

import (
	"testing"

	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/layout"
)

func newStore(t *testing.T) (*blockio.MemDevice, *Store) {
	t.Helper()
	totalBlocks := int64(layout.JournalStartBlock+layout.JournalBlocks) * layout.BlockSize
	dev := blockio.NewMemDevice(totalBlocks)
	return dev, NewStore(dev)
}

func TestInitIfAbsentWritesFreshHeader(t *testing.T) {
	_, s := newStore(t)

	h, err := s.InitIfAbsent()
	if err != nil {
		t.Fatalf("InitIfAbsent: %v", err)
	}
	if h.Magic != Magic || h.NBytesUsed != HeaderSize {
		t.Fatalf("unexpected fresh header: %+v", h)
	}

	// Re-reading should see the same persisted header, unchanged.
	h2, err := s.HeaderRead()
	if err != nil {
		t.Fatalf("HeaderRead: %v", err)
	}
	if h2 != h {
		t.Fatalf("header not persisted: got %+v, want %+v", h2, h)
	}
}

func TestInitIfAbsentIsIdempotentOnValidHeader(t *testing.T) {
	_, s := newStore(t)

	h1, err := s.InitIfAbsent()
	if err != nil {
		t.Fatal(err)
	}
	var hdr [HeaderSize]byte
	hdr[0] = 1 // corrupt nothing, just prove a second call doesn't clear
	_ = hdr

	// Advance NBytesUsed as if a record had been appended, then call InitIfAbsent again:
	// it must NOT re-clear a still-valid header.
	h1.NBytesUsed += 4104
	if err := s.HeaderWrite(h1); err != nil {
		t.Fatal(err)
	}

	h2, err := s.InitIfAbsent()
	if err != nil {
		t.Fatal(err)
	}
	if h2 != h1 {
		t.Fatalf("InitIfAbsent clobbered a valid header: got %+v, want %+v", h2, h1)
	}
}

func TestRequirePresentFailsOnAbsentJournal(t *testing.T) {
	_, s := newStore(t)
	if _, err := s.RequirePresent(); err != ErrJournalMissing {
		t.Fatalf("expected ErrJournalMissing, got %v", err)
	}
}

func TestAppendBytesAdvancesHeaderAfterBytes(t *testing.T) {
	dev, s := newStore(t)
	h, err := s.InitIfAbsent()
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("hello")
	if err := s.AppendBytes(&h, payload); err != nil {
		t.Fatal(err)
	}
	if h.NBytesUsed != HeaderSize+uint32(len(payload)) {
		t.Fatalf("unexpected nbytes_used: %d", h.NBytesUsed)
	}

	// The bytes actually landed at the right offset.
	got := make([]byte, len(payload))
	base := int64(layout.JournalStartBlock) * layout.BlockSize
	if err := dev.ReadAt(got, base+HeaderSize); err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	// And the on-disk header reflects it.
	persisted, err := s.HeaderRead()
	if err != nil {
		t.Fatal(err)
	}
	if persisted.NBytesUsed != h.NBytesUsed {
		t.Fatalf("on-disk header not advanced: %+v", persisted)
	}
}

func TestAppendBytesFailsWhenFull(t *testing.T) {
	_, s := newStore(t)
	h, err := s.InitIfAbsent()
	if err != nil {
		t.Fatal(err)
	}
	h.NBytesUsed = CapacityBytes() - 2
	if err := s.AppendBytes(&h, []byte("abc")); err != ErrJournalFull {
		t.Fatalf("expected ErrJournalFull, got %v", err)
	}
}

func TestRecordRoundTripThroughScan(t *testing.T) {
	_, s := newStore(t)
	h, err := s.InitIfAbsent()
	if err != nil {
		t.Fatal(err)
	}

	var img1, img2 [layout.BlockSize]byte
	img1[0] = 0xAA
	img2[0] = 0xBB

	if err := AppendDataRecord(s, &h, 17, img1[:]); err != nil {
		t.Fatal(err)
	}
	if err := AppendDataRecord(s, &h, 19, img2[:]); err != nil {
		t.Fatal(err)
	}
	if err := AppendCommitRecord(s, &h); err != nil {
		t.Fatal(err)
	}

	events, err := Scan(s, h.NBytesUsed)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != EventData || events[0].BlockNo != 17 || events[0].Image[0] != 0xAA {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Kind != EventData || events[1].BlockNo != 19 || events[1].Image[0] != 0xBB {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if events[2].Kind != EventCommit {
		t.Fatalf("expected trailing commit event, got %+v", events[2])
	}
}

func TestScanStopsAtTruncatedTail(t *testing.T) {
	_, s := newStore(t)
	h, err := s.InitIfAbsent()
	if err != nil {
		t.Fatal(err)
	}

	var img [layout.BlockSize]byte
	if err := AppendDataRecord(s, &h, 17, img[:]); err != nil {
		t.Fatal(err)
	}
	if err := AppendCommitRecord(s, &h); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-append: a second DATA record's header is on
	// disk, and the scan length covers that header plus only 10 more
	// bytes, so the record is truncated and the scan must stop right
	// after the committed transaction.
	complete := h.NBytesUsed

	var partial [RecHeaderSize]byte
	partial[0] = byte(RecTypeData)
	partial[2] = byte(DataRecordSize & 0xFF)
	partial[3] = byte(DataRecordSize >> 8)
	if err := s.dev.WriteAt(partial[:], s.base+int64(complete)); err != nil {
		t.Fatal(err)
	}

	events, err := Scan(s, complete+uint32(len(partial))+10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected scan to stop after the 2 complete events, got %d", len(events))
	}
}
