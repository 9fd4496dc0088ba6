package stat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/simplefs/common"
	"github.com/mit-pdos/simplefs/disk"
)

func TestMkStat(t *testing.T) {
	assert := assert.New(t)
	now := time.Unix(1600000000, 5).UTC()

	st := MkStat(3, S_IFREG, now)
	assert.Equal(common.Inum(3), st.Ino)
	assert.Equal(uint64(1), st.Nlink)
	assert.Equal(disk.BlockSize, st.Blksize)
	assert.Equal(common.NDIRECT, st.Blocks)
	assert.Equal(now, st.Ctime)
	assert.False(st.IsDir())

	st = MkStat(4, S_IFDIR|0755, now)
	assert.Equal(uint64(2), st.Nlink, "directories start with two links")
	assert.True(st.IsDir())
}

func TestRoundTrip(t *testing.T) {
	d := disk.NewMemDisk(8)
	st := &Stat{
		Mode:    S_IFREG | 0644,
		Ino:     7,
		Nlink:   1,
		Uid:     1000,
		Gid:     100,
		Size:    4242,
		Blksize: disk.BlockSize,
		Blocks:  common.NDIRECT,
		Atime:   time.Unix(1600000100, 0).UTC(),
		Mtime:   time.Unix(1600000200, 999).UTC(),
		Ctime:   time.Unix(1600000000, 1).UTC(),
	}
	require.NoError(t, Write(d, 5, st))
	st2, err := Read(d, 5)
	require.NoError(t, err)
	assert.Equal(t, st, st2)
}

func TestZeroTimes(t *testing.T) {
	st := MkStat(1, S_IFREG, time.Time{})
	st2 := Decode(st.Encode())
	assert.True(t, st2.Atime.IsZero())
	assert.True(t, st2.Ctime.IsZero())
	assert.Equal(t, st, st2)
}

func TestExtremeTimes(t *testing.T) {
	st := MkStat(2, S_IFREG, time.Unix(0, 0).UTC())
	st.Atime = time.Date(1600, 1, 2, 3, 4, 5, 6, time.UTC)
	st.Mtime = time.Date(2500, 12, 31, 23, 59, 59, 999999999, time.UTC)
	st2 := Decode(st.Encode())
	assert.False(t, st2.Ctime.IsZero(), "the epoch is not the zero time")
	assert.Equal(t, st, st2)
}
