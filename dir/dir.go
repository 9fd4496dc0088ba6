// Package dir implements the directory-entry block: a fixed array of
// (name, inum) records where record 0 holds the number of live records and
// records 1..count are the entries.
package dir

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
)

var (
	ErrInvalidName = errors.New("invalid name")
	ErrBadDirBlock = errors.New("malformed directory block")
)

// MaxEntries is how many entries fit after the count record.
const MaxEntries = common.NDIRENT - 1

type DirEnt struct {
	Name string
	Inum common.Inum
}

type DirBlock struct {
	ents []DirEnt
}

func MkDirBlock() *DirBlock {
	return &DirBlock{ents: make([]DirEnt, 0)}
}

// MkDefault returns a block holding "." and ".." for a new directory.
func MkDefault(self common.Inum, parent common.Inum) *DirBlock {
	db := MkDirBlock()
	db.ents = append(db.ents,
		DirEnt{Name: ".", Inum: self},
		DirEnt{Name: "..", Inum: parent})
	return db
}

// CheckName rejects names that cannot be stored without truncation or that
// would decode differently.
func CheckName(name string) error {
	if uint64(len(name)) > common.DIRNAMELEN {
		return fmt.Errorf("%q: %w", name, common.ErrNameTooLong)
	}
	if name == "" || bytes.IndexByte([]byte(name), 0) >= 0 {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

func (db *DirBlock) Count() uint64 {
	return uint64(len(db.ents))
}

func (db *DirBlock) Entries() []DirEnt {
	ents := make([]DirEnt, len(db.ents))
	copy(ents, db.ents)
	return ents
}

func (db *DirBlock) Lookup(name string) (common.Inum, bool) {
	for _, de := range db.ents {
		if de.Name == name {
			return de.Inum, true
		}
	}
	return common.NULLINUM, false
}

// Add appends an entry after the existing ones.
func (db *DirBlock) Add(name string, inum common.Inum) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if _, ok := db.Lookup(name); ok {
		return fmt.Errorf("%q: %w", name, common.ErrDuplicateName)
	}
	if db.Count() >= MaxEntries {
		return common.ErrDirectoryFull
	}
	db.ents = append(db.ents, DirEnt{Name: name, Inum: inum})
	return nil
}

func (db *DirBlock) Encode() disk.Block {
	blk := make(disk.Block, disk.BlockSize)
	putRecord(blk, 0, nil, db.Count())
	for i, de := range db.ents {
		putRecord(blk, uint64(i)+1, []byte(de.Name), uint64(de.Inum))
	}
	return blk
}

func putRecord(blk disk.Block, i uint64, name []byte, v uint64) {
	rec := blk[i*common.DIRENTSZ : (i+1)*common.DIRENTSZ]
	if uint64(len(name)) > common.DIRNAMELEN {
		panic("putRecord: name too long")
	}
	copy(rec[:common.DIRNAMELEN], name)
	enc := marshal.NewEnc(8)
	enc.PutInt(v)
	copy(rec[common.DIRNAMELEN:], enc.Finish())
}

func getRecord(blk disk.Block, i uint64) (string, uint64) {
	rec := blk[i*common.DIRENTSZ : (i+1)*common.DIRENTSZ]
	name := rec[:common.DIRNAMELEN]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}
	dec := marshal.NewDec(rec[common.DIRNAMELEN:])
	return string(name), dec.GetInt()
}

func Decode(blk disk.Block) (*DirBlock, error) {
	_, count := getRecord(blk, 0)
	if count > MaxEntries {
		return nil, fmt.Errorf("count %d: %w", count, ErrBadDirBlock)
	}
	db := &DirBlock{ents: make([]DirEnt, 0, count)}
	for i := uint64(1); i <= count; i++ {
		name, inum := getRecord(blk, i)
		db.ents = append(db.ents, DirEnt{Name: name, Inum: common.Inum(inum)})
	}
	return db, nil
}

func Read(d disk.Disk, bn common.Bnum) (*DirBlock, error) {
	blk, err := d.Read(bn)
	if err != nil {
		return nil, fmt.Errorf("reading directory block %d: %w", bn, err)
	}
	return Decode(blk)
}

func (db *DirBlock) Write(d disk.Disk, bn common.Bnum) error {
	if err := d.Write(bn, db.Encode()); err != nil {
		return fmt.Errorf("writing directory block %d: %w", bn, err)
	}
	return nil
}
