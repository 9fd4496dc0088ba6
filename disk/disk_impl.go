package disk

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mit-pdos/simplefs/util"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd        int
	numBlocks uint64
}

// NewFileDisk opens (creating if needed) a disk image at path that holds
// numBlocks blocks. A regular file of the wrong length is resized.
func NewFileDisk(path string, numBlocks uint64) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if (stat.Mode&unix.S_IFREG) != 0 && uint64(stat.Size) != numBlocks*BlockSize {
		err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("resizing %s: %w", path, err)
		}
	}
	util.DPrintf(1, "NewFileDisk: %s with %d blocks\n", path, numBlocks)
	return &fileDisk{fd, numBlocks}, nil
}

// OpenFileDisk opens an existing disk image at path without changing its
// length; the image holds as many blocks as fit in the file.
func OpenFileDisk(path string) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.Size <= 0 || uint64(stat.Size)%BlockSize != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: %d bytes: %w", path, stat.Size, ErrBlockSize)
	}
	numBlocks := uint64(stat.Size) / BlockSize
	util.DPrintf(1, "OpenFileDisk: %s with %d blocks\n", path, numBlocks)
	return &fileDisk{fd, numBlocks}, nil
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	if err := checkAccess(a, d.numBlocks, nil); err != nil {
		return nil, fmt.Errorf("read at %d: %w", a, err)
	}
	buf := make(Block, BlockSize)
	_, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return nil, fmt.Errorf("read at %d: %w", a, err)
	}
	util.DPrintf(20, "read: %d\n", a)
	return buf, nil
}

func (d *fileDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, d.numBlocks, v); err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	util.DPrintf(20, "write: %d\n", a)
	return nil
}

func (d *fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("file sync failed: %w", err)
	}
	return nil
}

func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}

/////////////////////////

var _ Disk = (*memDisk)(nil)

type memDisk struct {
	blocks [][BlockSize]byte
}

func NewMemDisk(numBlocks uint64) Disk {
	blocks := make([][BlockSize]byte, numBlocks)
	return &memDisk{blocks: blocks}
}

func (d *memDisk) Read(a uint64) (Block, error) {
	if err := checkAccess(a, uint64(len(d.blocks)), nil); err != nil {
		return nil, fmt.Errorf("read at %d: %w", a, err)
	}
	return util.CloneByteSlice(d.blocks[a][:]), nil
}

func (d *memDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, uint64(len(d.blocks)), v); err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	copy(d.blocks[a][:], v)
	return nil
}

func (d *memDisk) Size() (uint64, error) {
	return uint64(len(d.blocks)), nil
}

func (d *memDisk) Barrier() error { return nil }

func (d *memDisk) Close() error { return nil }
