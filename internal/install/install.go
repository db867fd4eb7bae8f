// Package install replays the committed portion of the journal into the
// live VSFS blocks, then resets the journal to empty.
package install

import (
	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/journal"
)

// pendingCap bounds the number of DATA records the installer will buffer
// between commits. Unlike the overlay's soft stop, exceeding this here is
// fatal: ErrTxnTooLarge is returned and, matching the original tool's
// behavior, the journal is left untouched so the image can be inspected
// or retried rather than silently discarding a transaction install could
// not safely replay.
const pendingCap = 64

// Install scans the journal's committed transactions and replays each
// one's block writes, in the exact order they were appended, then clears
// the journal region and writes a fresh empty header. It returns the
// number of COMMIT records processed.
func Install(dev blockio.Device, store *journal.Store) (int, error) {
	h, err := store.RequirePresent()
	if err != nil {
		return 0, err
	}

	events, err := journal.Scan(store, h.NBytesUsed)
	if err != nil {
		return 0, err
	}

	commits, err := applyCommitted(dev, events)
	if err != nil {
		return 0, err
	}

	if err := store.ClearRegion(); err != nil {
		return 0, err
	}
	if err := store.HeaderWrite(journal.Header{Magic: journal.Magic, NBytesUsed: journal.HeaderSize}); err != nil {
		return 0, err
	}
	return commits, nil
}

func applyCommitted(dev blockio.Device, events []journal.Event) (int, error) {
	pending := make([]journal.Event, 0, pendingCap)
	commits := 0

	for _, ev := range events {
		switch ev.Kind {
		case journal.EventData:
			if len(pending) >= pendingCap {
				return commits, journal.ErrTxnTooLarge
			}
			pending = append(pending, ev)
		case journal.EventCommit:
			for _, p := range pending {
				img := p.Image
				if err := dev.WriteBlock(p.BlockNo, &img); err != nil {
					return commits, err
				}
			}
			pending = pending[:0]
			commits++
		}
	}
	return commits, nil
}
