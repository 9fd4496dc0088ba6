package disk

import (
	"fmt"

	"github.com/tchajed/goose/machine/disk"
)

// gooseDisk lets any goose machine disk back a volume. Goose disks panic on
// bad addresses, so accesses are checked here first.
type gooseDisk struct {
	d disk.Disk
}

var _ Disk = gooseDisk{}

func FromGoose(d disk.Disk) Disk {
	return gooseDisk{d: d}
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	if err := checkAccess(a, g.d.Size(), nil); err != nil {
		return nil, fmt.Errorf("read at %d: %w", a, err)
	}
	return g.d.Read(a), nil
}

func (g gooseDisk) Write(a uint64, v Block) error {
	if err := checkAccess(a, g.d.Size(), v); err != nil {
		return fmt.Errorf("write at %d: %w", a, err)
	}
	g.d.Write(a, v)
	return nil
}

func (g gooseDisk) Size() (uint64, error) {
	return g.d.Size(), nil
}

func (g gooseDisk) Barrier() error {
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() error {
	g.d.Close()
	return nil
}
