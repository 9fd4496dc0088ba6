package dir

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)
	db := MkDefault(1, 0)
	blk := db.Encode()

	_, count := getRecord(blk, 0)
	assert.Equal(uint64(2), count, "count lives in record 0")
	name, inum := getRecord(blk, 1)
	assert.Equal(".", name)
	assert.Equal(uint64(1), inum)
	name, inum = getRecord(blk, 2)
	assert.Equal("..", name)
	assert.Equal(uint64(0), inum)
}

func TestReadWrite(t *testing.T) {
	d := disk.NewMemDisk(4)
	db := MkDefault(3, 0)
	require.NoError(t, db.Add("hello", 4))
	require.NoError(t, db.Write(d, 2))

	db2, err := Read(d, 2)
	require.NoError(t, err)
	assert.Equal(t, []DirEnt{{".", 3}, {"..", 0}, {"hello", 4}}, db2.Entries())

	inum, ok := db2.Lookup("hello")
	assert.True(t, ok)
	assert.Equal(t, common.Inum(4), inum)
	_, ok = db2.Lookup("world")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	assert := assert.New(t)
	db := MkDirBlock()
	long := strings.Repeat("x", int(common.DIRNAMELEN))
	assert.NoError(db.Add(long, 1), "a name filling the field exactly fits")

	err := db.Add(long+"y", 2)
	assert.True(errors.Is(err, common.ErrNameTooLong))
	err = db.Add("", 2)
	assert.True(errors.Is(err, ErrInvalidName))
	err = db.Add("a\x00b", 2)
	assert.True(errors.Is(err, ErrInvalidName))
	assert.Equal(uint64(1), db.Count(), "rejected names are not added")

	db2, err := Decode(db.Encode())
	require.NoError(t, err)
	assert.Equal(long, db2.Entries()[0].Name)
}

func TestDuplicate(t *testing.T) {
	db := MkDefault(1, 0)
	require.NoError(t, db.Add("a", 2))
	err := db.Add("a", 3)
	assert.True(t, errors.Is(err, common.ErrDuplicateName))
	err = db.Add(".", 3)
	assert.True(t, errors.Is(err, common.ErrDuplicateName))
	assert.Equal(t, uint64(3), db.Count())
}

func TestFull(t *testing.T) {
	db := MkDirBlock()
	for i := uint64(0); i < MaxEntries; i++ {
		require.NoError(t, db.Add(fmt.Sprintf("f%d", i), common.Inum(i)))
	}
	err := db.Add("one-more", 1)
	assert.Equal(t, common.ErrDirectoryFull, err)

	db2, err := Decode(db.Encode())
	require.NoError(t, err)
	assert.Equal(t, MaxEntries, db2.Count())
}

func TestBadCount(t *testing.T) {
	blk := make(disk.Block, disk.BlockSize)
	putRecord(blk, 0, nil, MaxEntries+1)
	_, err := Decode(blk)
	assert.True(t, errors.Is(err, ErrBadDirBlock))
}
