// Package filetable keeps track of open files in two levels: a system-wide
// table of open inodes, and a table of descriptors that each refer to one
// open-inode slot and carry a cursor.
//
// A descriptor is bound to at most one slot and a slot to at most one
// descriptor; sharing a slot between descriptors is not supported yet.
package filetable

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/util"
)

var (
	ErrNoFreeSlot        = errors.New("no free open-inode slot")
	ErrInvalidSlot       = errors.New("invalid open-inode slot")
	ErrSlotBound         = errors.New("open-inode slot already has a descriptor")
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

type Fd uint64

const NOSLOT uint64 = ^uint64(0)

// OpenTable is the system-wide open-inode table.
type OpenTable struct {
	inums []common.Inum
}

func MkOpenTable(n uint64) *OpenTable {
	t := &OpenTable{inums: make([]common.Inum, n)}
	t.Reset()
	return t
}

func (t *OpenTable) Reset() {
	for i := range t.inums {
		t.inums[i] = common.NULLINUM
	}
}

// Assign binds the first free slot to inum.
func (t *OpenTable) Assign(inum common.Inum) (uint64, error) {
	for i, cur := range t.inums {
		if cur == common.NULLINUM {
			t.inums[i] = inum
			util.DPrintf(5, "Assign: slot %d inode %d\n", i, inum)
			return uint64(i), nil
		}
	}
	util.DPrintf(1, "Assign: no free slot\n")
	return NOSLOT, ErrNoFreeSlot
}

func (t *OpenTable) Release(slot uint64) error {
	if slot >= uint64(len(t.inums)) {
		return fmt.Errorf("slot %d: %w", slot, ErrInvalidSlot)
	}
	t.inums[slot] = common.NULLINUM
	return nil
}

func (t *OpenTable) FindSlot(inum common.Inum) (uint64, bool) {
	for i, cur := range t.inums {
		if cur != common.NULLINUM && cur == inum {
			return uint64(i), true
		}
	}
	return NOSLOT, false
}

func (t *OpenTable) Inum(slot uint64) (common.Inum, bool) {
	if slot >= uint64(len(t.inums)) || t.inums[slot] == common.NULLINUM {
		return common.NULLINUM, false
	}
	return t.inums[slot], true
}

type desc struct {
	reserved bool
	slot     uint64
	off      uint64
}

// DescTable is the bounded table of descriptors handed out to callers.
type DescTable struct {
	descs []desc
	nused uint64
}

func MkDescTable(n uint64) *DescTable {
	t := &DescTable{descs: make([]desc, n)}
	t.Reset()
	return t
}

func (t *DescTable) Reset() {
	for i := range t.descs {
		t.descs[i] = desc{slot: NOSLOT}
	}
	t.nused = 0
}

func (t *DescTable) NumUsed() uint64 {
	return t.nused
}

// Allocate reserves the first free descriptor; it is not bound to any slot.
func (t *DescTable) Allocate() (Fd, error) {
	for i := range t.descs {
		if !t.descs[i].reserved {
			t.descs[i] = desc{reserved: true, slot: NOSLOT}
			t.nused++
			util.DPrintf(5, "Allocate: fd %d\n", i)
			return Fd(i), nil
		}
	}
	util.DPrintf(1, "Allocate: no free descriptor\n")
	return 0, common.ErrNoFreeDescriptor
}

func (t *DescTable) get(fd Fd) (*desc, error) {
	if uint64(fd) >= uint64(len(t.descs)) || !t.descs[fd].reserved {
		return nil, fmt.Errorf("fd %d: %w", fd, ErrInvalidDescriptor)
	}
	return &t.descs[fd], nil
}

func (t *DescTable) Bind(fd Fd, slot uint64) error {
	d, err := t.get(fd)
	if err != nil {
		return err
	}
	if other, ok := t.FdForSlot(slot); ok && other != fd {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotBound)
	}
	d.slot = slot
	d.off = 0
	return nil
}

// Release frees fd. The open-inode slot it was bound to stays assigned.
func (t *DescTable) Release(fd Fd) error {
	if _, err := t.get(fd); err != nil {
		return err
	}
	t.descs[fd] = desc{slot: NOSLOT}
	t.nused--
	return nil
}

func (t *DescTable) Slot(fd Fd) (uint64, bool) {
	d, err := t.get(fd)
	if err != nil || d.slot == NOSLOT {
		return NOSLOT, false
	}
	return d.slot, true
}

func (t *DescTable) FdForSlot(slot uint64) (Fd, bool) {
	for i, d := range t.descs {
		if d.reserved && d.slot == slot {
			return Fd(i), true
		}
	}
	return 0, false
}

func (t *DescTable) Offset(fd Fd) (uint64, error) {
	d, err := t.get(fd)
	if err != nil {
		return 0, err
	}
	return d.off, nil
}

func (t *DescTable) SetOffset(fd Fd, off uint64) error {
	d, err := t.get(fd)
	if err != nil {
		return err
	}
	d.off = off
	return nil
}

type FileTable struct {
	Open  *OpenTable
	Descs *DescTable
}

func MkFileTable() *FileTable {
	return &FileTable{
		Open:  MkOpenTable(common.NOPENINODE),
		Descs: MkDescTable(common.MAXFD),
	}
}

func (ft *FileTable) Reset() {
	ft.Open.Reset()
	ft.Descs.Reset()
}

// ResolveInode returns the inode fd refers to.
func (ft *FileTable) ResolveInode(fd Fd) (common.Inum, bool) {
	slot, ok := ft.Descs.Slot(fd)
	if !ok {
		return common.NULLINUM, false
	}
	return ft.Open.Inum(slot)
}

// ResolveDescriptor returns the descriptor open on inum.
func (ft *FileTable) ResolveDescriptor(inum common.Inum) (Fd, bool) {
	slot, ok := ft.Open.FindSlot(inum)
	if !ok {
		return 0, false
	}
	return ft.Descs.FdForSlot(slot)
}
