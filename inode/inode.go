package inode

import (
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/simplefs/addr"
	"github.com/mit-pdos/simplefs/common"
)

// Inode is the in-memory copy of one on-disk inode record.
//
// Direct[0] is the inode's stat block; Direct[1:] hold its content. A valid
// inode has every pointer assigned, an invalid one has none.
type Inode struct {
	Inum   common.Inum
	Valid  bool
	Size   uint64
	Blkno  common.Bnum // inode-table block holding this record
	Off    uint64      // record index within Blkno
	Direct [common.NDIRECT]common.Bnum
}

// MkInode returns an invalid inode placed at inum's table position.
func MkInode(inum common.Inum) *Inode {
	a := addr.MkInodeAddr(inum)
	ip := &Inode{
		Inum:  inum,
		Blkno: a.Blkno,
		Off:   a.Off,
	}
	ip.clearDirect()
	return ip
}

func (ip *Inode) clearDirect() {
	for i := range ip.Direct {
		ip.Direct[i] = common.NULLBNUM
	}
}

func (ip *Inode) Addr() addr.Addr {
	return addr.MkAddr(ip.Blkno, ip.Off)
}

func (ip *Inode) StatBlock() common.Bnum {
	return ip.Direct[0]
}

// Blocks returns the assigned pointers, in slot order.
func (ip *Inode) Blocks() []common.Bnum {
	var bns []common.Bnum
	for _, bn := range ip.Direct {
		if bn != common.NULLBNUM {
			bns = append(bns, bn)
		}
	}
	return bns
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	var valid uint64
	if ip.Valid {
		valid = 1
	}
	enc.PutInt(valid)
	enc.PutInt(ip.Size)
	enc.PutInt(ip.Blkno)
	enc.PutInt(ip.Off)
	enc.PutInts(ip.Direct[:])
	return enc.Finish()
}

func Decode(buf []byte, inum common.Inum) *Inode {
	if uint64(len(buf)) != common.INODESZ {
		panic("Decode: not an inode record")
	}
	ip := &Inode{Inum: inum}
	dec := marshal.NewDec(buf)
	ip.Valid = dec.GetInt() == 1
	ip.Size = dec.GetInt()
	ip.Blkno = dec.GetInt()
	ip.Off = dec.GetInt()
	for i := range ip.Direct {
		ip.Direct[i] = dec.GetInt()
	}
	return ip
}
