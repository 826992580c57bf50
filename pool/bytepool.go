// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import (
	"math/bits"

	"github.com/momentics/puki/api"
)

const (
	minClassShift = 6  // 64 B
	maxClassShift = 20 // 1 MiB
)

var _ api.BytePool = (*BytePool)(nil)

// BytePool hands out byte slices from power-of-two size classes. Requests
// above the largest class are allocated directly and not retained.
type BytePool struct {
	classes [maxClassShift - minClassShift + 1]*SyncPool[*[]byte]
}

// NewBytePool creates an empty pool.
func NewBytePool() *BytePool {
	bp := &BytePool{}
	for i := range bp.classes {
		size := 1 << (i + minClassShift)
		bp.classes[i] = NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		})
	}
	return bp
}

// classFor returns the class index for n, or -1 if n is too large.
func classFor(n int) int {
	if n <= 1<<minClassShift {
		return 0
	}
	shift := bits.Len(uint(n - 1))
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}

// Acquire returns a slice of length n.
func (bp *BytePool) Acquire(n int) []byte {
	if n < 0 {
		n = 0
	}
	idx := classFor(n)
	if idx < 0 {
		return make([]byte, n)
	}
	return (*bp.classes[idx].Get())[:n]
}

// Release returns buf for reuse. Slices not obtained from Acquire are
// accepted only if their capacity is exactly a class size.
func (bp *BytePool) Release(buf []byte) {
	c := cap(buf)
	if c < 1<<minClassShift || c&(c-1) != 0 {
		return
	}
	idx := classFor(c)
	if idx < 0 {
		return
	}
	b := buf[:c]
	bp.classes[idx].Put(&b)
}

// Clone copies src into a pooled slice.
func (bp *BytePool) Clone(src []byte) []byte {
	dst := bp.Acquire(len(src))
	copy(dst, src)
	return dst
}
