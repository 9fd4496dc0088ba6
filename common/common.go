package common

import (
	"errors"

	"github.com/tchajed/goose/machine/disk"
)

const (
	MAGIC uint64 = 0x53494d504c454653 // "SIMPLEFS"

	NDIRECT   uint64 = 4 // direct pointers per inode; pointer 0 is the stat block
	INODESZ   uint64 = 64 // on-disk size
	INODEBLK  uint64 = disk.BlockSize / INODESZ
	INODEPCT  uint64 = 10 // percent of the volume set aside for inode blocks
	NBITBLOCK uint64 = disk.BlockSize * 8

	DIRNAMELEN uint64 = 24
	DIRENTSZ   uint64 = DIRNAMELEN + 8
	NDIRENT    uint64 = disk.BlockSize / DIRENTSZ // including the count record

	NOPENINODE uint64 = 20
	MAXFD      uint64 = 20
)

type Inum uint64
type Bnum = uint64

const (
	SUPERBNUM  Bnum = 0
	INODESTART Bnum = 1
	NULLBNUM   Bnum = ^Bnum(0)
	NULLINUM   Inum = ^Inum(0)
)

var (
	ErrMagicMismatch    = errors.New("disk magic mismatch")
	ErrInvalidInode     = errors.New("invalid inode")
	ErrNoFreeInode      = errors.New("no free inode")
	ErrNoFreeBlock      = errors.New("no free block")
	ErrInvalidOffset    = errors.New("invalid offset")
	ErrNoFreeDescriptor = errors.New("no free descriptor")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrDirectoryFull    = errors.New("directory full")
	ErrNameTooLong      = errors.New("name too long")
	ErrNotDir           = errors.New("not a directory")
)
