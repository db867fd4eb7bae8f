package blockio_test

import (
	"testing"

	"github.com/coldforge/vsfsjournal/internal/blockio"
)

func TestMemDeviceWriteAtGrowsBackingBuffer(t *testing.T) {
	dev := blockio.NewMemDevice(0)
	payload := []byte("hello")
	if err := dev.WriteAt(payload, 10); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if len(dev.Bytes()) != 15 {
		t.Fatalf("expected backing buffer to grow to 15 bytes, got %d", len(dev.Bytes()))
	}

	got := make([]byte, len(payload))
	if err := dev.ReadAt(got, 10); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestMemDeviceReadAtPastEndIsShortIO(t *testing.T) {
	dev := blockio.NewMemDevice(4)
	buf := make([]byte, 8)
	if err := dev.ReadAt(buf, 0); err == nil {
		t.Fatal("expected a short-read error reading past the end of the device")
	}
}

func TestMemDeviceBlockRoundTrip(t *testing.T) {
	dev := blockio.NewMemDevice(int64(3 * blockio.BlockSize))
	var block [blockio.BlockSize]byte
	block[0] = 0x42
	block[blockio.BlockSize-1] = 0x24

	if err := dev.WriteBlock(1, &block); err != nil {
		t.Fatal(err)
	}

	var got [blockio.BlockSize]byte
	if err := dev.ReadBlock(1, &got); err != nil {
		t.Fatal(err)
	}
	if got != block {
		t.Fatal("block round trip through WriteBlock/ReadBlock mismatched")
	}

	var other [blockio.BlockSize]byte
	if err := dev.ReadBlock(0, &other); err != nil {
		t.Fatal(err)
	}
	if other[0] != 0 {
		t.Fatal("writing block 1 must not disturb block 0")
	}
}
