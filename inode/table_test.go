package inode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/simplefs/alloc"
	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
	"github.com/mit-pdos/simplefs/super"
)

type volume struct {
	d  disk.Disk
	sb *super.Superblock
	a  *alloc.Alloc
	t  *Table
}

func mkVolume(t *testing.T, nblocks uint64) *volume {
	d := disk.NewMemDisk(nblocks)
	sb, err := super.MkSuperblock(nblocks)
	require.NoError(t, err)
	a := alloc.MkAlloc(sb.DataStart(), sb.Nblocks)
	tab := MkTable(d, sb, a)
	require.NoError(t, tab.WriteBackAll())
	return &volume{d: d, sb: sb, a: a, t: tab}
}

// reload simulates a remount: a fresh allocator rebuilt from the disk table
func (v *volume) reload(t *testing.T) {
	v.a = alloc.MkAlloc(v.sb.DataStart(), v.sb.Nblocks)
	tab, err := LoadTable(v.d, v.sb, v.a)
	require.NoError(t, err)
	v.t = tab
}

func TestEncodeDecode(t *testing.T) {
	ip := MkInode(70)
	ip.Valid = true
	ip.Size = 1234
	ip.Direct = [common.NDIRECT]common.Bnum{5, 6, 7, common.NULLBNUM}
	b := ip.Encode()
	assert.Equal(t, common.INODESZ, uint64(len(b)))
	assert.Equal(t, ip, Decode(b, 70))
}

func TestMkInode(t *testing.T) {
	assert := assert.New(t)
	ip := MkInode(common.Inum(common.INODEBLK + 2))
	assert.False(ip.Valid)
	assert.Equal(common.Bnum(2), ip.Blkno)
	assert.Equal(uint64(2), ip.Off)
	assert.Empty(ip.Blocks())
	for _, bn := range ip.Direct {
		assert.Equal(common.NULLBNUM, bn)
	}
}

func TestCreate(t *testing.T) {
	assert := assert.New(t)
	v := mkVolume(t, 40)

	inum, err := v.t.Create()
	require.NoError(t, err)
	assert.Equal(common.Inum(0), inum)

	ip, err := v.t.ReadInode(inum)
	require.NoError(t, err)
	assert.True(ip.Valid)
	assert.Equal(uint64(0), ip.Size)
	seen := make(map[common.Bnum]bool)
	for _, bn := range ip.Direct {
		assert.NotEqual(common.NULLBNUM, bn)
		assert.GreaterOrEqual(bn, v.sb.DataStart(), "pointer into reserved region")
		assert.False(seen[bn], "pointers must be distinct")
		assert.True(v.a.IsUsed(bn))
		seen[bn] = true
	}

	inum2, err := v.t.Create()
	require.NoError(t, err)
	assert.Equal(common.Inum(1), inum2)
}

func TestDelete(t *testing.T) {
	assert := assert.New(t)
	v := mkVolume(t, 40)
	inum, err := v.t.Create()
	require.NoError(t, err)
	ip, _ := v.t.ReadInode(inum)
	blocks := ip.Blocks()

	require.NoError(t, v.t.Delete(inum))
	ip, err = v.t.ReadInode(inum)
	require.NoError(t, err)
	assert.False(ip.Valid)
	assert.Empty(ip.Blocks())
	for _, bn := range blocks {
		assert.False(v.a.IsUsed(bn), "block %d should be free", bn)
	}
	assert.Equal(uint64(0), v.a.NumUsed())

	assert.NoError(v.t.Delete(inum), "deleting an invalid inode is accepted")

	inum2, err := v.t.Create()
	require.NoError(t, err)
	assert.Equal(inum, inum2, "deleted slot is reused in place")
}

func TestInvalidInode(t *testing.T) {
	v := mkVolume(t, 40)
	n := common.Inum(v.t.Ninodes())
	_, err := v.t.ReadInode(n)
	assert.True(t, errors.Is(err, common.ErrInvalidInode))
	err = v.t.Delete(n)
	assert.True(t, errors.Is(err, common.ErrInvalidInode))
	_, err = v.t.GetValid(3)
	assert.True(t, errors.Is(err, common.ErrInvalidInode), "inode 3 not in use")
}

func TestSizeOf(t *testing.T) {
	assert := assert.New(t)
	v := mkVolume(t, 40)
	for i := 0; i < 3; i++ {
		_, err := v.t.Create()
		require.NoError(t, err)
	}
	_, err := v.t.SizeOf(0)
	assert.True(errors.Is(err, common.ErrInvalidInode))
	_, err = v.t.SizeOf(1)
	assert.True(errors.Is(err, common.ErrInvalidInode))

	require.NoError(t, v.t.SetSize(2, 300))
	sz, err := v.t.SizeOf(2)
	assert.NoError(err)
	assert.Equal(uint64(300), sz)

	_, err = v.t.SizeOf(common.Inum(v.t.Ninodes()))
	assert.True(errors.Is(err, common.ErrInvalidInode))
}

func TestExhaustBlocks(t *testing.T) {
	assert := assert.New(t)
	// 35 data blocks: 8 inodes of 4 blocks, then 3 left over
	v := mkVolume(t, 40)
	for i := 0; i < 8; i++ {
		_, err := v.t.Create()
		require.NoError(t, err)
	}
	used := v.a.NumUsed()
	valid := v.t.NumValid()

	_, err := v.t.Create()
	assert.Equal(common.ErrNoFreeBlock, err)
	assert.Equal(used, v.a.NumUsed(), "failed create must not leak blocks")
	assert.Equal(valid, v.t.NumValid())
	ip, _ := v.t.ReadInode(8)
	assert.False(ip.Valid, "failed create leaves the slot invalid")
}

func TestExhaustInodes(t *testing.T) {
	v := mkVolume(t, 40)
	for _, ip := range v.t.inodes {
		ip.Valid = true
	}
	_, err := v.t.Create()
	assert.Equal(t, common.ErrNoFreeInode, err)
}

func TestRebuild(t *testing.T) {
	assert := assert.New(t)
	v := mkVolume(t, 40)
	for i := 0; i < 3; i++ {
		_, err := v.t.Create()
		require.NoError(t, err)
	}
	require.NoError(t, v.t.Delete(1))
	want := v.a.Used()

	v.reload(t)
	assert.Equal(want, v.a.Used())
	assert.Equal(uint64(2), v.t.NumValid())

	v.reload(t)
	assert.Equal(want, v.a.Used(), "mount should be deterministic")
}

func TestRebuildHealsLeak(t *testing.T) {
	v := mkVolume(t, 40)
	_, err := v.t.Create()
	require.NoError(t, err)
	want := v.a.Used()

	v.a.MarkUsed(30) // referenced by no inode
	v.reload(t)
	assert.Equal(t, want, v.a.Used())
}

func TestBlockForOffset(t *testing.T) {
	assert := assert.New(t)
	slot, err := BlockForOffset(0)
	assert.NoError(err)
	assert.Equal(uint64(1), slot)

	slot, err = BlockForOffset(disk.BlockSize - 1)
	assert.NoError(err)
	assert.Equal(uint64(1), slot)

	slot, err = BlockForOffset(disk.BlockSize * 2)
	assert.NoError(err)
	assert.Equal(uint64(3), slot)

	_, err = BlockForOffset((common.NDIRECT - 1) * disk.BlockSize)
	assert.True(errors.Is(err, common.ErrInvalidOffset))
	_, err = BlockForOffset((common.NDIRECT-1)*disk.BlockSize + 1)
	assert.True(errors.Is(err, common.ErrInvalidOffset))
}
