package addr

import (
	"github.com/mit-pdos/simplefs/common"
)

// Addr identifies an inode record on disk.
//
// Blkno is the inode-table block containing the record, and Off is the index
// of the record within that block (not a byte offset).
type Addr struct {
	Blkno common.Bnum
	Off   uint64
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

func MkInodeAddr(inum common.Inum) Addr {
	i := uint64(inum) / common.INODEBLK
	off := uint64(inum) % common.INODEBLK
	return MkAddr(common.INODESTART+common.Bnum(i), off)
}

// ByteOff is where the record starts within its block
func (a Addr) ByteOff() uint64 {
	return a.Off * common.INODESZ
}
