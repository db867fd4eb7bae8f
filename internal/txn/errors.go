package txn

import "errors"

// Sentinel errors for the create transaction, one per distinct failure
// kind the allocation and validation path can hit.
var (
	ErrNameInvalid   = errors.New("txn: name must be non-empty and shorter than 28 bytes")
	ErrRootNotDir    = errors.New("txn: root inode is not a directory")
	ErrRootNoBlock   = errors.New("txn: root directory has no data block")
	ErrNoFreeInode   = errors.New("txn: no free inode")
	ErrDirFull       = errors.New("txn: root directory is full")
	ErrExists        = errors.New("txn: a file with that name already exists")
	ErrCorruptBitmap = errors.New("txn: inode bitmap says free but inode slot is not")
)
