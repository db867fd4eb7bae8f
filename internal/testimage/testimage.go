// Package testimage builds a minimal, freshly formatted VSFS image for
// tests: a root directory inode at inode 0, an empty root directory data
// block, and an empty journal region. It stands in for the mkfs-style
// initializer this tool deliberately does not own.
package testimage

import (
	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/layout"
)

// RootDirBlock is the data block used for the root directory in every
// fixture this package builds.
const RootDirBlock = layout.DataStartBlock

// New returns an in-memory device with a freshly formatted image: inode 0
// is a directory whose direct[0] points at RootDirBlock, bit 0 of the
// inode bitmap is set, and the root directory block and journal region
// are zeroed.
func New() *blockio.MemDevice {
	totalBlocks := int64(layout.DataStartBlock + 1)
	dev := blockio.NewMemDevice(totalBlocks * layout.BlockSize)

	var bitmap [layout.BlockSize]byte
	layout.BitmapSet(bitmap[:], layout.RootInodeNum)
	must(dev.WriteBlock(layout.InodeBitmapBlock, &bitmap))

	var itbl0 [layout.BlockSize]byte
	root := layout.Inode{
		Type:   layout.InodeTypeDirectory,
		Links:  2,
		Size:   0,
		Direct: [8]uint32{RootDirBlock},
	}
	layout.PutInodeAt(itbl0[:], 0, root)
	must(dev.WriteBlock(layout.InodeTableBlock+0, &itbl0))

	var itbl1 [layout.BlockSize]byte
	must(dev.WriteBlock(layout.InodeTableBlock+1, &itbl1))

	var rootDir [layout.BlockSize]byte
	must(dev.WriteBlock(RootDirBlock, &rootDir))

	return dev
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
