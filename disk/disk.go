package disk

import (
	"errors"

	"github.com/tchajed/goose/machine/disk"
)

// Block is a BlockSize-byte buffer
type Block = disk.Block

const BlockSize uint64 = disk.BlockSize

var (
	ErrOutOfBounds = errors.New("block address out of bounds")
	ErrBlockSize   = errors.New("buffer is not block-sized")
)

// Disk provides access to a logical block-based disk
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// Write updates a disk block by address
	//
	// Expects a < Size().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

func checkAccess(a uint64, numBlocks uint64, v Block) error {
	if a >= numBlocks {
		return ErrOutOfBounds
	}
	if v != nil && uint64(len(v)) != BlockSize {
		return ErrBlockSize
	}
	return nil
}
