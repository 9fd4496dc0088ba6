package stat

import (
	"fmt"
	"time"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
)

const (
	S_IFMT  uint32 = 0170000
	S_IFDIR uint32 = 0040000
	S_IFREG uint32 = 0100000
)

// Stat is the attribute record kept alone in an inode's stat block.
//
// Size is informational: the inode table's size is authoritative and the two
// are not kept in step.
type Stat struct {
	Mode    uint32
	Ino     common.Inum
	Nlink   uint64
	Uid     uint32
	Gid     uint32
	Size    uint64
	Blksize uint64
	Blocks  uint64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

// MkStat fills in a fresh record for a new inode of the given file type.
func MkStat(inum common.Inum, fileType uint32, now time.Time) *Stat {
	st := &Stat{
		Mode:    fileType,
		Ino:     inum,
		Nlink:   1,
		Blksize: disk.BlockSize,
		Blocks:  common.NDIRECT,
		Ctime:   now,
	}
	if fileType&S_IFMT == S_IFDIR {
		st.Nlink = 2
	}
	return st
}

func (st *Stat) IsDir() bool {
	return st.Mode&S_IFMT == S_IFDIR
}

// A time is stored as two words: Unix seconds, then nanoseconds with timeSet
// or'ed in. A second word of 0 is the zero time.
const timeSet uint64 = 1 << 32

func timeToInts(t time.Time) (uint64, uint64) {
	if t.IsZero() {
		return 0, 0
	}
	return uint64(t.Unix()), uint64(t.Nanosecond()) | timeSet
}

func intsToTime(sec uint64, nsec uint64) time.Time {
	if nsec&timeSet == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), int64(nsec&^timeSet)).UTC()
}

func (st *Stat) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(uint64(st.Mode))
	enc.PutInt(uint64(st.Ino))
	enc.PutInt(st.Nlink)
	enc.PutInt(uint64(st.Uid))
	enc.PutInt(uint64(st.Gid))
	enc.PutInt(st.Size)
	enc.PutInt(st.Blksize)
	enc.PutInt(st.Blocks)
	for _, t := range []time.Time{st.Atime, st.Mtime, st.Ctime} {
		sec, nsec := timeToInts(t)
		enc.PutInt(sec)
		enc.PutInt(nsec)
	}
	return enc.Finish()
}

func Decode(blk disk.Block) *Stat {
	dec := marshal.NewDec(blk)
	st := &Stat{}
	st.Mode = uint32(dec.GetInt())
	st.Ino = common.Inum(dec.GetInt())
	st.Nlink = dec.GetInt()
	st.Uid = uint32(dec.GetInt())
	st.Gid = uint32(dec.GetInt())
	st.Size = dec.GetInt()
	st.Blksize = dec.GetInt()
	st.Blocks = dec.GetInt()
	for _, t := range []*time.Time{&st.Atime, &st.Mtime, &st.Ctime} {
		sec := dec.GetInt()
		*t = intsToTime(sec, dec.GetInt())
	}
	return st
}

func Read(d disk.Disk, bn common.Bnum) (*Stat, error) {
	blk, err := d.Read(bn)
	if err != nil {
		return nil, fmt.Errorf("reading stat block %d: %w", bn, err)
	}
	return Decode(blk), nil
}

func Write(d disk.Disk, bn common.Bnum, st *Stat) error {
	if err := d.Write(bn, st.Encode()); err != nil {
		return fmt.Errorf("writing stat block %d: %w", bn, err)
	}
	return nil
}
