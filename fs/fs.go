// Package fs ties the layout pieces together into a single volume.
//
// A Filesystem owns every piece of in-memory state: the superblock, the
// inode table cache, the free-block bitmap, and the open-file tables. Format
// or Mount initializes it and Unmount discards it. Operations on a
// Filesystem that is not mounted are the caller's error and are not checked.
//
// Nothing here is safe for concurrent use.
package fs

import (
	"fmt"
	"time"

	"github.com/mit-pdos/simplefs/alloc"
	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/dir"
	"github.com/mit-pdos/simplefs/disk"
	"github.com/mit-pdos/simplefs/filetable"
	"github.com/mit-pdos/simplefs/inode"
	"github.com/mit-pdos/simplefs/stat"
	"github.com/mit-pdos/simplefs/super"
	"github.com/mit-pdos/simplefs/util"
)

type Filesystem struct {
	d     disk.Disk
	sb    *super.Superblock
	alloc *alloc.Alloc
	itab  *inode.Table
	files *filetable.FileTable
	now   func() time.Time
}

func MkFilesystem() *Filesystem {
	return &Filesystem{now: time.Now}
}

// Format lays out a new, empty filesystem on d, destroying what was there.
// With reset, every data block is zeroed too. The superblock is written
// last, so a failed format never leaves a volume that mounts.
//
// Format does not mount d.
func (fs *Filesystem) Format(d disk.Disk, reset bool) error {
	util.DPrintf(1, "Format: reset %v\n", reset)
	nblocks, err := d.Size()
	if err != nil {
		return fmt.Errorf("initializing block store: %w", err)
	}
	sb, err := super.MkSuperblock(nblocks)
	if err != nil {
		return err
	}

	// a half-formatted volume must not mount with the old header
	if err := d.Write(common.SUPERBNUM, make(disk.Block, disk.BlockSize)); err != nil {
		return fmt.Errorf("clearing superblock: %w", err)
	}

	a := alloc.MkAlloc(sb.DataStart(), sb.Nblocks)
	itab := inode.MkTable(d, sb, a)
	if err := itab.WriteBackAll(); err != nil {
		return err
	}
	if reset {
		zero := make(disk.Block, disk.BlockSize)
		for bn := sb.DataStart(); bn < sb.Nblocks; bn++ {
			if err := d.Write(bn, zero); err != nil {
				return fmt.Errorf("clearing block %d: %w", bn, err)
			}
		}
	}
	files := filetable.MkFileTable()

	if err := sb.Write(d); err != nil {
		return err
	}
	if err := d.Barrier(); err != nil {
		return err
	}

	fs.d = d
	fs.sb = sb
	fs.alloc = a
	fs.itab = itab
	fs.files = files
	util.DPrintf(1, "Format: %d blocks, %d inodes\n", sb.Nblocks, sb.Ninodes)
	return nil
}

// Mount checks d for a filesystem and rebuilds the free-block bitmap by
// scanning every inode. On failure fs is left as it was.
func (fs *Filesystem) Mount(d disk.Disk) error {
	sb, err := super.Read(d)
	if err != nil {
		util.DPrintf(0, "Mount: %v\n", err)
		return err
	}
	nblocks, err := d.Size()
	if err != nil {
		return err
	}
	if err := sb.Validate(); err != nil {
		util.DPrintf(0, "Mount: %v\n", err)
		return err
	}
	if sb.Nblocks > nblocks {
		return fmt.Errorf("superblock claims %d blocks, disk has %d: %w",
			sb.Nblocks, nblocks, super.ErrVolumeTooSmall)
	}
	a := alloc.MkAlloc(sb.DataStart(), sb.Nblocks)
	itab, err := inode.LoadTable(d, sb, a)
	if err != nil {
		return err
	}

	fs.d = d
	fs.sb = sb
	fs.alloc = a
	fs.itab = itab
	fs.files = filetable.MkFileTable()
	util.DPrintf(1, "Mount: ok\n")
	return nil
}

// Unmount drops all in-memory state. Everything on disk is already up to
// date, so nothing is written.
func (fs *Filesystem) Unmount() {
	fs.d = nil
	fs.sb = nil
	fs.alloc = nil
	fs.itab = nil
	fs.files = nil
}

func (fs *Filesystem) Describe() super.Summary {
	return fs.sb.Describe()
}

func (fs *Filesystem) Create() (common.Inum, error) {
	return fs.itab.Create()
}

func (fs *Filesystem) Delete(inum common.Inum) error {
	return fs.itab.Delete(inum)
}

func (fs *Filesystem) ReadInode(inum common.Inum) (*inode.Inode, error) {
	return fs.itab.ReadInode(inum)
}

func (fs *Filesystem) SizeOf(inum common.Inum) (uint64, error) {
	return fs.itab.SizeOf(inum)
}

// Alloc exposes the free-block bitmap for inspection.
func (fs *Filesystem) Alloc() *alloc.Alloc {
	return fs.alloc
}

// Files exposes the open-file tables to the system-call layer.
func (fs *Filesystem) Files() *filetable.FileTable {
	return fs.files
}

// InitMetadata writes the stat record of a freshly created inode.
func (fs *Filesystem) InitMetadata(inum common.Inum, fileType uint32) error {
	ip, err := fs.itab.GetValid(inum)
	if err != nil {
		return err
	}
	st := stat.MkStat(inum, fileType, fs.now())
	return stat.Write(fs.d, ip.StatBlock(), st)
}

func (fs *Filesystem) ReadMetadata(inum common.Inum) (*stat.Stat, error) {
	ip, err := fs.itab.GetValid(inum)
	if err != nil {
		return nil, err
	}
	return stat.Read(fs.d, ip.StatBlock())
}

// WriteMetadata replaces inum's stat record. It does not touch the inode's
// size; use the inode table for that.
func (fs *Filesystem) WriteMetadata(inum common.Inum, st *stat.Stat) error {
	ip, err := fs.itab.GetValid(inum)
	if err != nil {
		return err
	}
	return stat.Write(fs.d, ip.StatBlock(), st)
}

// dirBlock returns the entry block of inum, which must be a directory.
func (fs *Filesystem) dirBlock(inum common.Inum) (common.Bnum, error) {
	ip, err := fs.itab.GetValid(inum)
	if err != nil {
		return common.NULLBNUM, err
	}
	st, err := stat.Read(fs.d, ip.StatBlock())
	if err != nil {
		return common.NULLBNUM, err
	}
	if !st.IsDir() {
		return common.NULLBNUM, fmt.Errorf("inode %d: %w", inum, common.ErrNotDir)
	}
	return ip.Direct[1], nil
}

// InitDefaultEntries writes "." and ".." into a new directory. It is what
// turns newInum's first content block into an entry block, so newInum's
// type is not checked.
func (fs *Filesystem) InitDefaultEntries(parent common.Inum, newInum common.Inum) error {
	ip, err := fs.itab.GetValid(newInum)
	if err != nil {
		return err
	}
	return dir.MkDefault(newInum, parent).Write(fs.d, ip.Direct[1])
}

func (fs *Filesystem) AddEntry(parent common.Inum, name string, child common.Inum) error {
	bn, err := fs.dirBlock(parent)
	if err != nil {
		return err
	}
	db, err := dir.Read(fs.d, bn)
	if err != nil {
		return err
	}
	if err := db.Add(name, child); err != nil {
		return err
	}
	util.DPrintf(5, "AddEntry: %d/%s -> %d\n", parent, name, child)
	return db.Write(fs.d, bn)
}

func (fs *Filesystem) Entries(inum common.Inum) ([]dir.DirEnt, error) {
	bn, err := fs.dirBlock(inum)
	if err != nil {
		return nil, err
	}
	db, err := dir.Read(fs.d, bn)
	if err != nil {
		return nil, err
	}
	return db.Entries(), nil
}

func (fs *Filesystem) Lookup(parent common.Inum, name string) (common.Inum, bool, error) {
	bn, err := fs.dirBlock(parent)
	if err != nil {
		return common.NULLINUM, false, err
	}
	db, err := dir.Read(fs.d, bn)
	if err != nil {
		return common.NULLINUM, false, err
	}
	inum, ok := db.Lookup(name)
	return inum, ok, nil
}

// Usage reports how much of the volume is in use.
type Usage struct {
	InodesInUse     uint64
	DataBlocksInUse uint64
}

func (fs *Filesystem) Usage() Usage {
	return Usage{
		InodesInUse:     fs.itab.NumValid(),
		DataBlocksInUse: fs.alloc.NumUsed(),
	}
}
