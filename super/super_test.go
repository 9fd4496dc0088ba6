package super

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
)

func TestLayout(t *testing.T) {
	assert := assert.New(t)
	sb, err := MkSuperblock(40)
	require.NoError(t, err)
	assert.Equal(uint64(40), sb.Nblocks)
	assert.Equal(uint64(4), sb.NinodeBlocks, "10% of the volume")
	assert.Equal(4*common.INODEBLK, sb.Ninodes)
	assert.Equal(common.Bnum(1), sb.InodeStart())
	assert.Equal(common.Bnum(5), sb.DataStart())
}

func TestTooSmall(t *testing.T) {
	_, err := MkSuperblock(9)
	assert.True(t, errors.Is(err, ErrVolumeTooSmall), "no room for an inode block")
	_, err = MkSuperblock(0)
	assert.True(t, errors.Is(err, ErrVolumeTooSmall))
	sb, err := MkSuperblock(10)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), sb.NinodeBlocks)
}

func TestReadWrite(t *testing.T) {
	d := disk.NewMemDisk(40)
	sb, err := MkSuperblock(40)
	require.NoError(t, err)
	require.NoError(t, sb.Write(d))

	sb2, err := Read(d)
	require.NoError(t, err)
	assert.Equal(t, sb, sb2)
}

func TestBadMagic(t *testing.T) {
	d := disk.NewMemDisk(40)
	_, err := Read(d)
	assert.Equal(t, common.ErrMagicMismatch, err, "zeroed disk has no filesystem")
}

func TestDescribe(t *testing.T) {
	sb, _ := MkSuperblock(100)
	s := sb.Describe()
	assert.Equal(t, Summary{
		Nblocks:      100,
		NinodeBlocks: 10,
		Ninodes:      10 * common.INODEBLK,
		DataStart:    11,
	}, s)
	assert.Contains(t, s.String(), "10 inode blocks")
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)
	for _, n := range []uint64{10, 40, 1000} {
		sb, err := MkSuperblock(n)
		require.NoError(t, err)
		assert.NoError(sb.Validate(), "%d blocks", n)
	}

	bad := []Superblock{
		{Magic: common.MAGIC, Nblocks: 10, NinodeBlocks: 20, Ninodes: 20 * common.INODEBLK},
		{Magic: common.MAGIC, Nblocks: 40, NinodeBlocks: 0, Ninodes: 0},
		{Magic: common.MAGIC, Nblocks: 40, NinodeBlocks: 36, Ninodes: 36 * common.INODEBLK},
		{Magic: common.MAGIC, Nblocks: 40, NinodeBlocks: 4, Ninodes: 7},
		{Magic: common.MAGIC, Nblocks: ^uint64(0), NinodeBlocks: ^uint64(0) / 2, Ninodes: 0},
	}
	for _, sb := range bad {
		assert.True(errors.Is(sb.Validate(), ErrBadSuperblock), "%+v", sb)
	}
}
