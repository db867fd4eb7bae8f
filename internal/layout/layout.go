// Package layout describes the fixed on-disk VSFS image that this tool
// journals writes against. The superblock, bitmaps, inode table and root
// directory block are external collaborators: this package only knows how
// to find and decode them, it never initializes or owns them (that is the
// job of a mkfs-style tool outside this repository's scope).
package layout

import "encoding/binary"

// BlockSize is the fixed unit of I/O across the whole image.
const BlockSize = 4096

// Fixed block layout of the image, per the external VSFS format.
const (
	SuperblockBlock = 0
	JournalStartBlock = 1
	JournalBlocks      = 16
	InodeBitmapBlock   = JournalStartBlock + JournalBlocks // 17
	DataBitmapBlock    = InodeBitmapBlock + 1               // 18 (never touched by this tool)
	InodeTableBlock    = DataBitmapBlock + 1                // 19
	InodeTableBlocks   = 2
	DataStartBlock     = InodeTableBlock + InodeTableBlocks // 21
)

// Inode/dirent geometry.
const (
	InodeSize       = 128
	DirentSize      = 32
	NameLen         = 28
	InodesPerBlock  = BlockSize / InodeSize  // 32
	MaxInodes       = InodeTableBlocks * InodesPerBlock // 64, bits 0..63
	DirentsPerBlock = BlockSize / DirentSize // 128

	RootInodeNum = 0
)

// Inode types.
const (
	InodeTypeFree      uint16 = 0
	InodeTypeRegular   uint16 = 1
	InodeTypeDirectory uint16 = 2
)

// Inode is the in-memory view of a 128-byte on-disk inode record.
//
//	[0]  type    uint16
//	[2]  links   uint16
//	[4]  size    uint32
//	[8]  direct  [8]uint32
//	[40] ctime   uint32
//	[44] mtime   uint32
//	[48..128) reserved padding
type Inode struct {
	Type   uint16
	Links  uint16
	Size   uint32
	Direct [8]uint32
	Ctime  uint32
	Mtime  uint32
}

// DecodeInode reads a 128-byte packed inode record. Panics if buf is
// shorter than InodeSize, mirroring the fixed-size assumptions the rest of
// this package makes about the image layout.
func DecodeInode(buf []byte) Inode {
	_ = buf[InodeSize-1]
	var in Inode
	in.Type = binary.LittleEndian.Uint16(buf[0:2])
	in.Links = binary.LittleEndian.Uint16(buf[2:4])
	in.Size = binary.LittleEndian.Uint32(buf[4:8])
	for i := 0; i < 8; i++ {
		off := 8 + i*4
		in.Direct[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	in.Ctime = binary.LittleEndian.Uint32(buf[40:44])
	in.Mtime = binary.LittleEndian.Uint32(buf[44:48])
	return in
}

// Encode writes the inode as a packed 128-byte record into buf (which must
// be at least InodeSize long), zeroing the padding.
func (in Inode) Encode(buf []byte) {
	_ = buf[InodeSize-1]
	for i := range buf[:InodeSize] {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint16(buf[0:2], in.Type)
	binary.LittleEndian.PutUint16(buf[2:4], in.Links)
	binary.LittleEndian.PutUint32(buf[4:8], in.Size)
	for i := 0; i < 8; i++ {
		off := 8 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], in.Direct[i])
	}
	binary.LittleEndian.PutUint32(buf[40:44], in.Ctime)
	binary.LittleEndian.PutUint32(buf[44:48], in.Mtime)
}

// InodeAt decodes the inode at the given slot (0-based) of a 4096-byte
// inode-table block image.
func InodeAt(block []byte, slot int) Inode {
	off := slot * InodeSize
	return DecodeInode(block[off : off+InodeSize])
}

// PutInodeAt writes an inode at the given slot of a 4096-byte inode-table
// block image.
func PutInodeAt(block []byte, slot int, in Inode) {
	off := slot * InodeSize
	in.Encode(block[off : off+InodeSize])
}

// Dirent is the in-memory view of a 32-byte directory entry.
//
//	[0]  inode uint32 (0 = empty slot)
//	[4]  name  [28]byte, NUL-padded, not necessarily NUL-terminated when full
type Dirent struct {
	InodeNum uint32
	Name     [NameLen]byte
}

// DirentAt decodes the directory entry at the given index of a 4096-byte
// directory data block image.
func DirentAt(block []byte, index int) Dirent {
	off := index * DirentSize
	var d Dirent
	d.InodeNum = binary.LittleEndian.Uint32(block[off : off+4])
	copy(d.Name[:], block[off+4:off+DirentSize])
	return d
}

// PutDirentAt writes a directory entry at the given index of a 4096-byte
// directory data block image.
func PutDirentAt(block []byte, index int, d Dirent) {
	off := index * DirentSize
	binary.LittleEndian.PutUint32(block[off:off+4], d.InodeNum)
	copy(block[off+4:off+DirentSize], d.Name[:])
}

// NameMatches reports whether the entry's 28-byte name field matches name,
// using the same length-bounded comparison as a NUL-padded C string
// field: only the bytes actually used by name (plus, implicitly, the
// requirement that whatever follows is all padding) are compared.
func (d Dirent) NameMatches(name string) bool {
	var field [NameLen]byte
	copy(field[:], name)
	return field == d.Name
}

// BitmapTest reports whether bit i is set in a bitmap byte slice, LSB-first
// within each byte.
func BitmapTest(bm []byte, i uint32) bool {
	return bm[i/8]&(1<<(i%8)) != 0
}

// BitmapSet sets bit i in a bitmap byte slice, LSB-first within each byte.
func BitmapSet(bm []byte, i uint32) {
	bm[i/8] |= 1 << (i % 8)
}
