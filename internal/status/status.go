// Package status provides read-only journal diagnostics built on the same
// scanner the overlay and installer share. Nothing here writes to the
// image.
package status

import (
	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/journal"
	"github.com/coldforge/vsfsjournal/internal/layout"
)

// Report summarizes the current state of an image's journal.
type Report struct {
	Present       bool
	NBytesUsed    uint32
	CapacityBytes uint32
	Commits       int
	HasUncommitted bool
}

// Inspect reads the journal header and scans its committed transactions
// without mutating anything.
func Inspect(store *journal.Store) (Report, error) {
	h, err := store.HeaderRead()
	if err != nil {
		return Report{}, err
	}
	if !h.Valid() {
		return Report{Present: false, CapacityBytes: journal.CapacityBytes()}, nil
	}

	events, err := journal.Scan(store, h.NBytesUsed)
	if err != nil {
		return Report{}, err
	}

	commits := 0
	trailingData := false
	for _, ev := range events {
		switch ev.Kind {
		case journal.EventCommit:
			commits++
			trailingData = false
		case journal.EventData:
			trailingData = true
		}
	}

	return Report{
		Present:        true,
		NBytesUsed:     h.NBytesUsed,
		CapacityBytes:  journal.CapacityBytes(),
		Commits:        commits,
		HasUncommitted: trailingData,
	}, nil
}

// FreeInodes reports, for the current committed view (live inode bitmap
// overlaid with the journal), which inode numbers in [1, MaxInodes) are
// still free — a read-only mirror of the allocation scan Create performs.
func FreeInodes(dev blockio.Device, store *journal.Store) ([]uint32, error) {
	var bitmap [layout.BlockSize]byte
	if err := dev.ReadBlock(layout.InodeBitmapBlock, &bitmap); err != nil {
		return nil, err
	}

	h, err := store.HeaderRead()
	if err == nil && h.Valid() && h.NBytesUsed > journal.HeaderSize {
		events, err := journal.Scan(store, h.NBytesUsed)
		if err != nil {
			return nil, err
		}
		overlay := journal.BuildOverlay(events)
		if img, ok := overlay.Find(layout.InodeBitmapBlock); ok {
			bitmap = img
		}
	}

	var free []uint32
	for i := uint32(1); i < layout.MaxInodes; i++ {
		if !layout.BitmapTest(bitmap[:], i) {
			free = append(free, i)
		}
	}
	return free, nil
}
