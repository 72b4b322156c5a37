// Package bufpool recycles the byte slices used to frame and read ONC RPC
// records, so that listing a large NFS directory or reading a file in
// chunks does not allocate one slice per fragment.
//
// Slices come in three size classes. Requests above the largest class are
// allocated directly and dropped on Put.
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import "sync"

// Size classes. Small covers calls and short replies, medium a READDIRPLUS
// or READ reply at the usual 64KiB transfer size, large the biggest
// fragment servers send in practice.
const (
	SmallSize  = 4 << 10
	MediumSize = 64 << 10
	LargeSize  = 1 << 20
)

// Pool hands out slices from a fixed set of size classes.
type Pool struct {
	classes []class
}

type class struct {
	size int
	pool *sync.Pool
}

// NewPool creates a pool with the given size classes in ascending order.
// No sizes selects SmallSize, MediumSize and LargeSize.
func NewPool(sizes ...int) *Pool {
	if len(sizes) == 0 {
		sizes = []int{SmallSize, MediumSize, LargeSize}
	}
	p := &Pool{classes: make([]class, 0, len(sizes))}
	for _, size := range sizes {
		if size <= 0 {
			continue
		}
		if n := len(p.classes); n > 0 && size <= p.classes[n-1].size {
			continue
		}
		p.classes = append(p.classes, class{
			size: size,
			pool: &sync.Pool{New: func() any {
				buf := make([]byte, size)
				return &buf
			}},
		})
	}
	return p
}

// Get returns a slice of length size. Its capacity is the size class, so
// the content past size is whatever the previous user left there.
func (p *Pool) Get(size int) []byte {
	if size < 0 {
		size = 0
	}
	for _, c := range p.classes {
		if size <= c.size {
			buf := *c.pool.Get().(*[]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its size class. Slices that did not come from Get are
// ignored.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for _, c := range p.classes {
		if cap(buf) == c.size {
			full := buf[:c.size]
			c.pool.Put(&full)
			return
		}
	}
}

var global = NewPool()

// Get returns a slice of length size from the shared pool.
func Get(size int) []byte {
	return global.Get(size)
}

// Put returns buf to the shared pool.
func Put(buf []byte) {
	global.Put(buf)
}
