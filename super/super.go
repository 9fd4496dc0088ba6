// Package super owns the volume header at block 0 and the layout it implies:
// the superblock, then the inode blocks, then data blocks addressed only
// through inode pointers.
package super

import (
	"errors"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
)

var (
	ErrVolumeTooSmall = errors.New("volume too small")
	ErrBadSuperblock  = errors.New("inconsistent superblock")
)

type Superblock struct {
	Magic        uint64
	Nblocks      uint64
	NinodeBlocks uint64
	Ninodes      uint64
}

// MkSuperblock lays out a volume of nblocks blocks, giving INODEPCT percent of
// them to the inode table. There must be room for at least one inode's block
// quota after the table.
func MkSuperblock(nblocks uint64) (*Superblock, error) {
	ninodeblocks := nblocks * common.INODEPCT / 100
	if ninodeblocks == 0 || common.INODESTART+ninodeblocks+common.NDIRECT > nblocks {
		return nil, fmt.Errorf("%d blocks: %w", nblocks, ErrVolumeTooSmall)
	}
	return &Superblock{
		Magic:        common.MAGIC,
		Nblocks:      nblocks,
		NinodeBlocks: ninodeblocks,
		Ninodes:      ninodeblocks * common.INODEBLK,
	}, nil
}

// Validate checks that a superblock read from disk describes a layout this
// package could have produced: a non-empty inode region that leaves room for
// one inode's blocks, and an inode count that fills the region exactly.
func (sb *Superblock) Validate() error {
	if sb.NinodeBlocks == 0 || sb.NinodeBlocks >= sb.Nblocks ||
		sb.Nblocks-sb.NinodeBlocks < common.INODESTART+common.NDIRECT {
		return fmt.Errorf("%d inode blocks in %d: %w",
			sb.NinodeBlocks, sb.Nblocks, ErrBadSuperblock)
	}
	if sb.NinodeBlocks > ^uint64(0)/common.INODEBLK ||
		sb.Ninodes != sb.NinodeBlocks*common.INODEBLK {
		return fmt.Errorf("%d inodes in %d inode blocks: %w",
			sb.Ninodes, sb.NinodeBlocks, ErrBadSuperblock)
	}
	return nil
}

func (sb *Superblock) InodeStart() common.Bnum {
	return common.INODESTART
}

// DataStart is the first block the allocator may hand out.
func (sb *Superblock) DataStart() common.Bnum {
	return common.INODESTART + common.Bnum(sb.NinodeBlocks)
}

func (sb *Superblock) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(sb.Magic)
	enc.PutInt(sb.Nblocks)
	enc.PutInt(sb.NinodeBlocks)
	enc.PutInt(sb.Ninodes)
	return enc.Finish()
}

func Decode(blk disk.Block) *Superblock {
	dec := marshal.NewDec(blk)
	sb := &Superblock{}
	sb.Magic = dec.GetInt()
	sb.Nblocks = dec.GetInt()
	sb.NinodeBlocks = dec.GetInt()
	sb.Ninodes = dec.GetInt()
	return sb
}

// Read loads and validates the superblock of d.
func Read(d disk.Disk) (*Superblock, error) {
	blk, err := d.Read(common.SUPERBNUM)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := Decode(blk)
	if sb.Magic != common.MAGIC {
		return nil, common.ErrMagicMismatch
	}
	return sb, nil
}

func (sb *Superblock) Write(d disk.Disk) error {
	if err := d.Write(common.SUPERBNUM, sb.Encode()); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// Summary is a read-only report of a volume's layout.
type Summary struct {
	Nblocks      uint64
	NinodeBlocks uint64
	Ninodes      uint64
	DataStart    common.Bnum
}

func (sb *Superblock) Describe() Summary {
	return Summary{
		Nblocks:      sb.Nblocks,
		NinodeBlocks: sb.NinodeBlocks,
		Ninodes:      sb.Ninodes,
		DataStart:    sb.DataStart(),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("superblock:\n    %d blocks\n    %d inode blocks\n    %d inodes\n",
		s.Nblocks, s.NinodeBlocks, s.Ninodes)
}
