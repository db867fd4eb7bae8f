package layout

import "testing"

func TestInodeRoundTrip(t *testing.T) {
	in := Inode{
		Type:   InodeTypeRegular,
		Links:  1,
		Size:   42,
		Direct: [8]uint32{7, 0, 0, 0, 0, 0, 0, 0},
		Ctime:  1000,
		Mtime:  2000,
	}
	var buf [InodeSize]byte
	in.Encode(buf[:])

	got := DecodeInode(buf[:])
	if got != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, in)
	}
}

func TestInodeAtSlots(t *testing.T) {
	var block [BlockSize]byte
	a := Inode{Type: InodeTypeDirectory, Links: 2, Direct: [8]uint32{99}}
	b := Inode{Type: InodeTypeRegular, Links: 1}

	PutInodeAt(block[:], 0, a)
	PutInodeAt(block[:], 1, b)

	if got := InodeAt(block[:], 0); got != a {
		t.Fatalf("slot 0: got %+v, want %+v", got, a)
	}
	if got := InodeAt(block[:], 1); got != b {
		t.Fatalf("slot 1: got %+v, want %+v", got, b)
	}
}

func TestDirentNameMatches(t *testing.T) {
	var block [BlockSize]byte
	var name [NameLen]byte
	copy(name[:], "a")
	PutDirentAt(block[:], 2, Dirent{InodeNum: 1, Name: name})

	d := DirentAt(block[:], 2)
	if !d.NameMatches("a") {
		t.Fatal("expected name match for 'a'")
	}
	if d.NameMatches("b") {
		t.Fatal("unexpected name match for 'b'")
	}
}

func TestBitmapSetAndTest(t *testing.T) {
	var bm [BlockSize]byte
	if BitmapTest(bm[:], 5) {
		t.Fatal("bit 5 should start clear")
	}
	BitmapSet(bm[:], 5)
	if !BitmapTest(bm[:], 5) {
		t.Fatal("bit 5 should be set")
	}
	if BitmapTest(bm[:], 4) || BitmapTest(bm[:], 6) {
		t.Fatal("adjacent bits should remain clear")
	}
}

func TestMaxInodesIs64(t *testing.T) {
	if MaxInodes != 64 {
		t.Fatalf("expected 64 inodes across %d table blocks, got %d", InodeTableBlocks, MaxInodes)
	}
}
