package fs

import (
	"fmt"
	"io"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/dir"
	"github.com/mit-pdos/simplefs/disk"
	"github.com/mit-pdos/simplefs/filetable"
	"github.com/mit-pdos/simplefs/inode"
	"github.com/mit-pdos/simplefs/stat"
	"github.com/mit-pdos/simplefs/util"
)

// undoCreate deletes an inode whose creation could not be finished. The
// original error is what the caller reports, so a failed delete is only
// logged.
func (fs *Filesystem) undoCreate(inum common.Inum) {
	if err := fs.Delete(inum); err != nil {
		util.DPrintf(0, "rollback of inode %d failed: %v\n", inum, err)
	}
}

// mknode creates an inode with its stat record in place, deleting it again
// if that fails.
func (fs *Filesystem) mknode(fileType uint32) (common.Inum, error) {
	inum, err := fs.Create()
	if err != nil {
		return common.NULLINUM, err
	}
	if err := fs.InitMetadata(inum, fileType); err != nil {
		fs.undoCreate(inum)
		return common.NULLINUM, err
	}
	return inum, nil
}

// MkRoot creates a directory that is its own parent.
func (fs *Filesystem) MkRoot() (common.Inum, error) {
	inum, err := fs.mknode(stat.S_IFDIR | 0755)
	if err != nil {
		return common.NULLINUM, err
	}
	if err := fs.InitDefaultEntries(inum, inum); err != nil {
		fs.undoCreate(inum)
		return common.NULLINUM, err
	}
	return inum, nil
}

// Mkdir creates a directory and links it into parent under name.
func (fs *Filesystem) Mkdir(parent common.Inum, name string) (common.Inum, error) {
	return fs.mkchild(parent, name, stat.S_IFDIR|0755)
}

// Mkfile creates an empty regular file and links it into parent under name.
func (fs *Filesystem) Mkfile(parent common.Inum, name string) (common.Inum, error) {
	return fs.mkchild(parent, name, stat.S_IFREG|0644)
}

func (fs *Filesystem) mkchild(parent common.Inum, name string, mode uint32) (common.Inum, error) {
	// fail before allocating anything if the entry can't be added
	if err := dir.CheckName(name); err != nil {
		return common.NULLINUM, err
	}
	if _, err := fs.itab.GetValid(parent); err != nil {
		return common.NULLINUM, err
	}
	if _, found, err := fs.Lookup(parent, name); err != nil {
		return common.NULLINUM, err
	} else if found {
		return common.NULLINUM, fmt.Errorf("%q: %w", name, common.ErrDuplicateName)
	}

	inum, err := fs.mknode(mode)
	if err != nil {
		return common.NULLINUM, err
	}
	if mode&stat.S_IFMT == stat.S_IFDIR {
		if err := fs.InitDefaultEntries(parent, inum); err != nil {
			fs.undoCreate(inum)
			return common.NULLINUM, err
		}
	}
	if err := fs.AddEntry(parent, name, inum); err != nil {
		fs.undoCreate(inum)
		return common.NULLINUM, err
	}
	return inum, nil
}

// Open gives out a descriptor for inum. An inode has at most one descriptor:
// opening it again returns the one it already has.
func (fs *Filesystem) Open(inum common.Inum) (filetable.Fd, error) {
	if _, err := fs.itab.GetValid(inum); err != nil {
		return 0, err
	}
	if fd, ok := fs.files.ResolveDescriptor(inum); ok {
		return fd, nil
	}
	slot, found := fs.files.Open.FindSlot(inum)
	if !found {
		var err error
		slot, err = fs.files.Open.Assign(inum)
		if err != nil {
			return 0, err
		}
	}
	// only give back a slot this call assigned
	undo := func(fd filetable.Fd, allocated bool) {
		if allocated {
			if err := fs.files.Descs.Release(fd); err != nil {
				util.DPrintf(0, "Open: releasing fd %d: %v\n", fd, err)
			}
		}
		if !found {
			if err := fs.files.Open.Release(slot); err != nil {
				util.DPrintf(0, "Open: releasing slot %d: %v\n", slot, err)
			}
		}
	}
	fd, err := fs.files.Descs.Allocate()
	if err != nil {
		undo(fd, false)
		return 0, err
	}
	if err := fs.files.Descs.Bind(fd, slot); err != nil {
		undo(fd, true)
		return 0, err
	}
	util.DPrintf(1, "Open: inode %d fd %d slot %d\n", inum, fd, slot)
	return fd, nil
}

// Close releases fd and the open-inode slot behind it.
func (fs *Filesystem) Close(fd filetable.Fd) error {
	slot, ok := fs.files.Descs.Slot(fd)
	if err := fs.files.Descs.Release(fd); err != nil {
		return err
	}
	if ok {
		return fs.files.Open.Release(slot)
	}
	return nil
}

// Seek moves fd's cursor; the end of the block quota is the furthest it can go.
func (fs *Filesystem) Seek(fd filetable.Fd, off uint64) error {
	if off > inode.Capacity() {
		return fmt.Errorf("seek to %d: %w", off, common.ErrInvalidOffset)
	}
	return fs.files.Descs.SetOffset(fd, off)
}

func (fs *Filesystem) Tell(fd filetable.Fd) (uint64, error) {
	return fs.files.Descs.Offset(fd)
}

// ReadAt reads from inum's content starting at off, stopping at the inode's
// size. It returns io.EOF when nothing is left to read.
func (fs *Filesystem) ReadAt(inum common.Inum, p []byte, off uint64) (int, error) {
	ip, err := fs.itab.GetValid(inum)
	if err != nil {
		return 0, err
	}
	if off >= ip.Size {
		return 0, io.EOF
	}
	n := util.Min(uint64(len(p)), ip.Size-off)
	var done uint64
	for done < n {
		cur := off + done
		slot, err := inode.BlockForOffset(cur)
		if err != nil {
			return int(done), err
		}
		blk, err := fs.d.Read(ip.Direct[slot])
		if err != nil {
			return int(done), err
		}
		boff := cur % disk.BlockSize
		done += uint64(copy(p[done:n], blk[boff:]))
	}
	return int(done), nil
}

// WriteAt writes p into inum's content at off. A write that would not fit
// in the block quota is refused entirely. Writing past the end grows the
// inode's size.
func (fs *Filesystem) WriteAt(inum common.Inum, p []byte, off uint64) (int, error) {
	ip, err := fs.itab.GetValid(inum)
	if err != nil {
		return 0, err
	}
	n := uint64(len(p))
	if util.SumOverflows(off, n) || off+n > inode.Capacity() {
		return 0, fmt.Errorf("write of %d bytes at %d: %w", n, off, common.ErrInvalidOffset)
	}
	var done uint64
	for done < n {
		cur := off + done
		slot, err := inode.BlockForOffset(cur)
		if err != nil {
			return int(done), err
		}
		bn := ip.Direct[slot]
		blk, err := fs.d.Read(bn)
		if err != nil {
			return int(done), err
		}
		boff := cur % disk.BlockSize
		m := uint64(copy(blk[boff:], p[done:]))
		if err := fs.d.Write(bn, blk); err != nil {
			return int(done), err
		}
		done += m
	}
	if off+n > ip.Size {
		if err := fs.itab.SetSize(inum, off+n); err != nil {
			return int(done), err
		}
	}
	return int(done), nil
}
