package journal

import "github.com/coldforge/vsfsjournal/internal/layout"

// pendingCap bounds the run of DATA records collected since the last
// COMMIT while building the overlay. A transaction this tool ever writes
// never exceeds 4 DATA records (bitmap, two inode-table blocks, root dir),
// so 32 is generous headroom; exceeding it can only mean a foreign or
// corrupt journal, and the whole scan is abandoned rather than guessing at
// its structure.
const pendingCap = 32

// latestCap bounds the number of distinct blocks the overlay will track.
const latestCap = 64

// Overlay is the latest-committed-image-per-block projection a new
// transaction reads through, so it sees a consistent view even though the
// live blocks are still stale.
type Overlay struct {
	images map[uint32][layout.BlockSize]byte
}

// Find returns the overlay image for blockNo, if any committed transaction
// has touched it.
func (o *Overlay) Find(blockNo uint32) ([layout.BlockSize]byte, bool) {
	img, ok := o.images[blockNo]
	return img, ok
}

// BuildOverlay replays a sequence of scanned events into the
// latest-committed-image map. Within one transaction the last DATA record
// for a given block wins; across transactions the later COMMIT wins.
//
// A pending run longer than pendingCap aborts the whole build (matching a
// full scan stop: the overlay simply stops growing from that point, as if
// the torn tail were never there). A COMMIT whose pending upserts would
// grow latest past latestCap applies as many of that commit's entries as
// fit and skips the rest — it does not abort the scan, since later,
// unrelated commits may still be perfectly good.
func BuildOverlay(events []Event) *Overlay {
	o := &Overlay{images: make(map[uint32][layout.BlockSize]byte)}
	pending := make([]Event, 0, pendingCap)

	for _, ev := range events {
		switch ev.Kind {
		case EventData:
			if len(pending) >= pendingCap {
				return o
			}
			pending = append(pending, ev)
		case EventCommit:
			for _, p := range pending {
				if _, exists := o.images[p.BlockNo]; !exists && len(o.images) >= latestCap {
					break
				}
				o.images[p.BlockNo] = p.Image
			}
			pending = pending[:0]
		}
	}
	return o
}
