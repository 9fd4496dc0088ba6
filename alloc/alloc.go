package alloc

import (
	"github.com/mit-pdos/simplefs/util"
)

// Alloc uses an in-memory bit map to allocate and free numbers. Bit n
// corresponds to number n. Numbers below start are reserved: they count as
// in use and are never handed out.
type Alloc struct {
	bitmap []byte
	start  uint64
	max    uint64
}

func MkAlloc(start uint64, max uint64) *Alloc {
	if start > max {
		panic("MkAlloc")
	}
	a := &Alloc{
		bitmap: make([]byte, util.RoundUp(max, 8)),
		start:  start,
		max:    max,
	}
	return a
}

// MkMaxAlloc reserves only number 0.
func MkMaxAlloc(max uint64) *Alloc {
	return MkAlloc(1, max)
}

func (a *Alloc) IsUsed(n uint64) bool {
	if n < a.start {
		return true
	}
	if n >= a.max {
		panic("IsUsed")
	}
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

// MarkUsed records n as in use; marking a reserved number is a no-op.
func (a *Alloc) MarkUsed(n uint64) {
	if n >= a.max {
		panic("MarkUsed")
	}
	if n < a.start {
		return
	}
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

// AllocNum returns the lowest free number and marks it used.
func (a *Alloc) AllocNum() (uint64, bool) {
	for n := a.start; n < a.max; n++ {
		if !a.IsUsed(n) {
			a.MarkUsed(n)
			util.DPrintf(10, "AllocNum: %d\n", n)
			return n, true
		}
	}
	util.DPrintf(5, "AllocNum: none free\n")
	return 0, false
}

// FreeNum marks n free. Freeing a free (or reserved, or out-of-range) number
// does nothing.
func (a *Alloc) FreeNum(n uint64) {
	if n < a.start || n >= a.max {
		util.DPrintf(5, "FreeNum: ignoring %d\n", n)
		return
	}
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

// Reserve allocates count numbers, or none at all.
func (a *Alloc) Reserve(count uint64) ([]uint64, bool) {
	nums := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		n, ok := a.AllocNum()
		if !ok {
			for _, got := range nums {
				a.FreeNum(got)
			}
			util.DPrintf(5, "Reserve: only %d of %d free\n", len(nums), count)
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

// NumUsed counts in-use numbers in [start, max).
func (a *Alloc) NumUsed() uint64 {
	var count uint64
	for _, b := range a.bitmap {
		count += popCnt(b)
	}
	return count
}

func (a *Alloc) NumFree() uint64 {
	return a.max - a.start - a.NumUsed()
}

// Used lists the in-use numbers in [start, max), in order.
func (a *Alloc) Used() []uint64 {
	var used []uint64
	for n := a.start; n < a.max; n++ {
		if a.IsUsed(n) {
			used = append(used, n)
		}
	}
	return used
}
