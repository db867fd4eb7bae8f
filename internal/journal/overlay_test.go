package journal

import "testing"

func dataEvent(blockNo uint32, fill byte) Event {
	var ev Event
	ev.Kind = EventData
	ev.BlockNo = blockNo
	ev.Image[0] = fill
	return ev
}

func commitEvent() Event {
	return Event{Kind: EventCommit}
}

func TestBuildOverlayLastWriterWithinTransactionWins(t *testing.T) {
	events := []Event{
		dataEvent(5, 1),
		dataEvent(5, 2),
		commitEvent(),
	}
	o := BuildOverlay(events)
	img, ok := o.Find(5)
	if !ok || img[0] != 2 {
		t.Fatalf("expected block 5 image fill=2, got ok=%v fill=%d", ok, img[0])
	}
}

func TestBuildOverlayLaterCommitWins(t *testing.T) {
	events := []Event{
		dataEvent(5, 1),
		commitEvent(),
		dataEvent(5, 9),
		commitEvent(),
	}
	o := BuildOverlay(events)
	img, ok := o.Find(5)
	if !ok || img[0] != 9 {
		t.Fatalf("expected later commit to win with fill=9, got ok=%v fill=%d", ok, img[0])
	}
}

func TestBuildOverlayPendingOverflowAbortsWholeScan(t *testing.T) {
	var events []Event
	for i := 0; i < pendingCap+1; i++ {
		events = append(events, dataEvent(uint32(i), byte(i)))
	}
	// A legitimate commit that would otherwise apply block 999, appended
	// after the overflowing run: it must never be reached.
	events = append(events, dataEvent(999, 7), commitEvent())

	o := BuildOverlay(events)
	if _, ok := o.Find(999); ok {
		t.Fatal("pending overflow should abort the entire scan, but a later commit was applied")
	}
	if len(o.images) != 0 {
		t.Fatalf("expected no committed images after a pending overflow, got %d", len(o.images))
	}
}

func TestBuildOverlayLatestOverflowOnlySkipsThatCommit(t *testing.T) {
	var events []Event
	// latestCap+5 distinct blocks, committed in runs of at most pendingCap
	// so no run trips the pending overflow; the last run overflows latestCap.
	for i := 0; i < latestCap+5; i++ {
		events = append(events, dataEvent(uint32(i), 1))
		if (i+1)%pendingCap == 0 {
			events = append(events, commitEvent())
		}
	}
	events = append(events, commitEvent())
	// A later, well-formed commit rewriting a block the overlay already tracks.
	events = append(events, dataEvent(10, 42), commitEvent())

	o := BuildOverlay(events)

	if len(o.images) > latestCap {
		t.Fatalf("expected overlay to stop growing at latestCap=%d, got %d", latestCap, len(o.images))
	}
	img, ok := o.Find(10)
	if !ok || img[0] != 42 {
		t.Fatal("a later commit must still apply after an earlier commit overflowed latestCap")
	}
}

func TestBuildOverlayEmptyEventsYieldsEmptyOverlay(t *testing.T) {
	o := BuildOverlay(nil)
	if _, ok := o.Find(0); ok {
		t.Fatal("expected no images in an overlay built from no events")
	}
}
