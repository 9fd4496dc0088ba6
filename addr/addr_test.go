package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/simplefs/common"
)

func TestInodeAddr(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(MkAddr(1, 0), MkInodeAddr(0))
	assert.Equal(MkAddr(1, 1), MkInodeAddr(1))
	assert.Equal(MkAddr(1, common.INODEBLK-1),
		MkInodeAddr(common.Inum(common.INODEBLK-1)))
	assert.Equal(MkAddr(2, 0), MkInodeAddr(common.Inum(common.INODEBLK)),
		"next block after a full one")
	assert.Equal(MkAddr(4, 3), MkInodeAddr(common.Inum(3*common.INODEBLK+3)))
}

func TestByteOff(t *testing.T) {
	assert.Equal(t, uint64(0), MkAddr(1, 0).ByteOff())
	assert.Equal(t, 5*common.INODESZ, MkAddr(1, 5).ByteOff())
}
