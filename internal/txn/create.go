// Package txn builds and commits the single write transaction this tool
// ever produces: logging the creation of a new top-level regular file.
// Every mutation happens in memory first; journal records are only
// appended once the whole transaction is known to succeed.
package txn

import (
	"fmt"

	"github.com/coldforge/vsfsjournal/internal/blockio"
	"github.com/coldforge/vsfsjournal/internal/journal"
	"github.com/coldforge/vsfsjournal/internal/layout"
)

// Result describes a successfully logged create transaction.
type Result struct {
	InodeNum uint32
}

// Create reads the latest committed images (live blocks overlaid with any
// not-yet-installed journal transactions), allocates a new inode and
// directory entry for name, and appends one journal transaction recording
// the mutation. now is seconds since the epoch, truncated to 32 bits, used
// for the new inode's ctime/mtime and the root directory's mtime.
func Create(dev blockio.Device, store *journal.Store, name string, now uint32) (Result, error) {
	if len(name) == 0 || len(name) >= layout.NameLen {
		return Result{}, ErrNameInvalid
	}

	h, err := store.InitIfAbsent()
	if err != nil {
		return Result{}, err
	}

	var inodeBitmap, itbl0, itbl1, rootDirImg [layout.BlockSize]byte
	if err := dev.ReadBlock(layout.InodeBitmapBlock, &inodeBitmap); err != nil {
		return Result{}, err
	}
	if err := dev.ReadBlock(layout.InodeTableBlock+0, &itbl0); err != nil {
		return Result{}, err
	}
	if err := dev.ReadBlock(layout.InodeTableBlock+1, &itbl1); err != nil {
		return Result{}, err
	}

	root := layout.InodeAt(itbl0[:], 0)
	if root.Type != layout.InodeTypeDirectory {
		return Result{}, ErrRootNotDir
	}
	rootDirBlockNo := root.Direct[0]
	if rootDirBlockNo == 0 {
		return Result{}, ErrRootNoBlock
	}
	if err := dev.ReadBlock(rootDirBlockNo, &rootDirImg); err != nil {
		return Result{}, err
	}

	if h.NBytesUsed > journal.HeaderSize {
		events, err := journal.Scan(store, h.NBytesUsed)
		if err != nil {
			return Result{}, err
		}
		overlay := journal.BuildOverlay(events)

		if img, ok := overlay.Find(layout.InodeBitmapBlock); ok {
			inodeBitmap = img
		}
		if img, ok := overlay.Find(layout.InodeTableBlock + 0); ok {
			itbl0 = img
		}
		if img, ok := overlay.Find(layout.InodeTableBlock + 1); ok {
			itbl1 = img
		}

		root = layout.InodeAt(itbl0[:], 0)
		if root.Type != layout.InodeTypeDirectory {
			return Result{}, ErrRootNotDir
		}
		rootDirBlockNo = root.Direct[0]
		if rootDirBlockNo == 0 {
			return Result{}, ErrRootNoBlock
		}
		if err := dev.ReadBlock(rootDirBlockNo, &rootDirImg); err != nil {
			return Result{}, err
		}
		if img, ok := overlay.Find(rootDirBlockNo); ok {
			rootDirImg = img
		}
	}

	newInum := uint32(0)
	found := false
	for i := uint32(1); i < layout.MaxInodes; i++ {
		if !layout.BitmapTest(inodeBitmap[:], i) {
			newInum = i
			found = true
			break
		}
	}
	if !found {
		return Result{}, ErrNoFreeInode
	}

	blockIndex := newInum / layout.InodesPerBlock
	slot := newInum % layout.InodesPerBlock
	if blockIndex >= layout.InodeTableBlocks {
		return Result{}, fmt.Errorf("txn: inode %d out of table range", newInum)
	}
	targetTbl := &itbl0
	if blockIndex == 1 {
		targetTbl = &itbl1
	}
	if layout.InodeAt(targetTbl[:], int(slot)).Type != layout.InodeTypeFree {
		return Result{}, ErrCorruptBitmap
	}

	used := root.Size / layout.DirentSize
	if used < 2 {
		used = 2
	}
	if used >= layout.DirentsPerBlock {
		return Result{}, ErrDirFull
	}

	for i := uint32(0); i < used; i++ {
		d := layout.DirentAt(rootDirImg[:], int(i))
		if d.InodeNum != 0 && d.NameMatches(name) {
			return Result{}, ErrExists
		}
	}

	nmods := uint32(3)
	if blockIndex == 1 {
		nmods = 4
	}
	txnBytes := nmods*journal.DataRecordSize + journal.CommitRecordSize
	if h.NBytesUsed+txnBytes > journal.CapacityBytes() {
		return Result{}, journal.ErrJournalFull
	}

	layout.BitmapSet(inodeBitmap[:], newInum)

	layout.PutInodeAt(targetTbl[:], int(slot), layout.Inode{
		Type:  layout.InodeTypeRegular,
		Links: 1,
		Ctime: now,
		Mtime: now,
	})

	var nameField [layout.NameLen]byte
	copy(nameField[:], name)
	layout.PutDirentAt(rootDirImg[:], int(used), layout.Dirent{InodeNum: newInum, Name: nameField})

	// Size now covers every entry up to and including the new one, so the
	// next create's used count lands past it even when the root started at
	// size 0 with only the reserved slots 0 and 1.
	root.Size = (used + 1) * layout.DirentSize
	root.Mtime = now
	layout.PutInodeAt(itbl0[:], 0, root)

	if err := journal.AppendDataRecord(store, &h, layout.InodeBitmapBlock, inodeBitmap[:]); err != nil {
		return Result{}, err
	}
	if err := journal.AppendDataRecord(store, &h, layout.InodeTableBlock+0, itbl0[:]); err != nil {
		return Result{}, err
	}
	if blockIndex == 1 {
		if err := journal.AppendDataRecord(store, &h, layout.InodeTableBlock+1, itbl1[:]); err != nil {
			return Result{}, err
		}
	}
	if err := journal.AppendDataRecord(store, &h, rootDirBlockNo, rootDirImg[:]); err != nil {
		return Result{}, err
	}
	if err := journal.AppendCommitRecord(store, &h); err != nil {
		return Result{}, err
	}

	return Result{InodeNum: newInum}, nil
}
