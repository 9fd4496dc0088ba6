package inode

import (
	"fmt"

	"github.com/mit-pdos/simplefs/alloc"
	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
	"github.com/mit-pdos/simplefs/super"
	"github.com/mit-pdos/simplefs/util"
)

// Table is the inode table: an in-memory cache of every inode record, written
// through to the inode blocks on each mutation. It also keeps the block
// allocator in step with the pointers it hands out and takes back.
type Table struct {
	d      disk.Disk
	sb     *super.Superblock
	alloc  *alloc.Alloc
	inodes []*Inode
}

// MkTable returns a table of invalid inodes, as after a format. Nothing is
// written until WriteBackAll.
func MkTable(d disk.Disk, sb *super.Superblock, a *alloc.Alloc) *Table {
	inodes := make([]*Inode, sb.Ninodes)
	for i := range inodes {
		inodes[i] = MkInode(common.Inum(i))
	}
	return &Table{d: d, sb: sb, alloc: a, inodes: inodes}
}

// LoadTable reads the inode table from disk and rebuilds the allocator's
// bitmap from it: every block named by any inode pointer is marked in use.
func LoadTable(d disk.Disk, sb *super.Superblock, a *alloc.Alloc) (*Table, error) {
	t := &Table{d: d, sb: sb, alloc: a, inodes: make([]*Inode, 0, sb.Ninodes)}
	for i := uint64(0); i < sb.NinodeBlocks; i++ {
		blkno := sb.InodeStart() + i
		blk, err := d.Read(blkno)
		if err != nil {
			return nil, fmt.Errorf("reading inode block %d: %w", blkno, err)
		}
		for j := uint64(0); j < common.INODEBLK; j++ {
			inum := common.Inum(i*common.INODEBLK + j)
			ip := Decode(blk[j*common.INODESZ:(j+1)*common.INODESZ], inum)
			for _, bn := range ip.Direct {
				if bn == common.NULLBNUM {
					continue
				}
				if bn >= sb.Nblocks {
					util.DPrintf(0, "LoadTable: inode %d points past the volume (%d)\n",
						inum, bn)
					continue
				}
				a.MarkUsed(bn)
			}
			t.inodes = append(t.inodes, ip)
		}
	}
	util.DPrintf(1, "LoadTable: %d inodes, %d data blocks in use\n",
		len(t.inodes), a.NumUsed())
	return t, nil
}

func (t *Table) Ninodes() uint64 {
	return uint64(len(t.inodes))
}

func (t *Table) checkInum(inum common.Inum) error {
	if uint64(inum) >= t.Ninodes() {
		return fmt.Errorf("inode %d: %w", inum, common.ErrInvalidInode)
	}
	return nil
}

// ReadInode reads inode inum's record from its inode block.
func (t *Table) ReadInode(inum common.Inum) (*Inode, error) {
	if err := t.checkInum(inum); err != nil {
		return nil, err
	}
	ip := MkInode(inum)
	blk, err := t.d.Read(ip.Blkno)
	if err != nil {
		return nil, fmt.Errorf("reading inode %d: %w", inum, err)
	}
	off := ip.Addr().ByteOff()
	return Decode(blk[off:off+common.INODESZ], inum), nil
}

// Get returns a copy of the cached record for inum.
func (t *Table) Get(inum common.Inum) (*Inode, error) {
	if err := t.checkInum(inum); err != nil {
		return nil, err
	}
	ip := *t.inodes[inum]
	return &ip, nil
}

// GetValid is Get, but only for inodes in use.
func (t *Table) GetValid(inum common.Inum) (*Inode, error) {
	ip, err := t.Get(inum)
	if err != nil {
		return nil, err
	}
	if !ip.Valid {
		return nil, fmt.Errorf("inode %d not in use: %w", inum, common.ErrInvalidInode)
	}
	return ip, nil
}

// WriteBackAll writes the whole table to its blocks, in table order.
func (t *Table) WriteBackAll() error {
	for i := uint64(0); i < t.sb.NinodeBlocks; i++ {
		blk := make(disk.Block, disk.BlockSize)
		for j := uint64(0); j < common.INODEBLK; j++ {
			ip := t.inodes[i*common.INODEBLK+j]
			copy(blk[j*common.INODESZ:], ip.Encode())
		}
		blkno := t.sb.InodeStart() + i
		if err := t.d.Write(blkno, blk); err != nil {
			return fmt.Errorf("writing inode block %d: %w", blkno, err)
		}
	}
	return nil
}

// Create claims the first invalid inode and assigns it a full quota of
// blocks. The blocks are reserved before the inode is touched, so a failure
// leaves both the table and the allocator as they were.
func (t *Table) Create() (common.Inum, error) {
	var ip *Inode
	for _, cand := range t.inodes {
		if !cand.Valid {
			ip = cand
			break
		}
	}
	if ip == nil {
		util.DPrintf(1, "Create: no free inode\n")
		return common.NULLINUM, common.ErrNoFreeInode
	}

	bns, ok := t.alloc.Reserve(common.NDIRECT)
	if !ok {
		util.DPrintf(1, "Create: no free blocks for inode %d\n", ip.Inum)
		return common.NULLINUM, common.ErrNoFreeBlock
	}
	zero := make(disk.Block, disk.BlockSize)
	for _, bn := range bns {
		if err := t.d.Write(bn, zero); err != nil {
			t.release(bns)
			return common.NULLINUM, fmt.Errorf("clearing block %d: %w", bn, err)
		}
	}

	ip.Valid = true
	ip.Size = 0
	copy(ip.Direct[:], bns)
	if err := t.WriteBackAll(); err != nil {
		ip.Valid = false
		ip.clearDirect()
		t.release(bns)
		return common.NULLINUM, err
	}
	util.DPrintf(1, "Create: inode %d blocks %v\n", ip.Inum, bns)
	return ip.Inum, nil
}

func (t *Table) release(bns []common.Bnum) {
	for _, bn := range bns {
		t.alloc.FreeNum(bn)
	}
}

// Delete returns inum's blocks to the allocator and marks it invalid, in
// place. Deleting an invalid inode only rewrites the table.
func (t *Table) Delete(inum common.Inum) error {
	if err := t.checkInum(inum); err != nil {
		return err
	}
	ip := t.inodes[inum]
	t.release(ip.Blocks())
	ip.clearDirect()
	ip.Valid = false
	ip.Size = 0
	if err := t.WriteBackAll(); err != nil {
		return err
	}
	util.DPrintf(1, "Delete: inode %d\n", inum)
	return nil
}

// SizeOf returns inum's logical size. Inodes 0 and 1 are refused.
func (t *Table) SizeOf(inum common.Inum) (uint64, error) {
	if inum <= 1 {
		return 0, fmt.Errorf("size of inode %d: %w", inum, common.ErrInvalidInode)
	}
	ip, err := t.ReadInode(inum)
	if err != nil {
		return 0, err
	}
	return ip.Size, nil
}

// SetSize records a new logical size for a valid inode.
func (t *Table) SetSize(inum common.Inum, size uint64) error {
	if _, err := t.GetValid(inum); err != nil {
		return err
	}
	t.inodes[inum].Size = size
	return t.WriteBackAll()
}

// NumValid counts inodes in use.
func (t *Table) NumValid() uint64 {
	var n uint64
	for _, ip := range t.inodes {
		if ip.Valid {
			n++
		}
	}
	return n
}

// Capacity is the largest logical size an inode can reach.
func Capacity() uint64 {
	return (common.NDIRECT - 1) * disk.BlockSize
}

// BlockForOffset maps a byte offset to the direct slot holding it; content
// starts at slot 1.
func BlockForOffset(off uint64) (uint64, error) {
	if off >= Capacity() {
		return 0, fmt.Errorf("offset %d: %w", off, common.ErrInvalidOffset)
	}
	return 1 + off/disk.BlockSize, nil
}
