// Package bufpool recycles the byte slices used to frame RPC records.
//
// Every outgoing call and reply is copied once behind its record mark
// before it is written. Most of those records are small (a path or two),
// directory batches are larger, and a few approach the record size limit,
// so the pool keeps three size classes:
//   - Small (512B): path calls, booleans, outcomes carrying a failure
//   - Medium (64KB): directory entry batches
//   - Large (1MB): unusually large batches
//
// Anything bigger is allocated directly and dropped on Put so the pool never
// pins multi-megabyte slices.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

// Default size classes.
const (
	DefaultSmallSize  = 512
	DefaultMediumSize = 64 << 10
	DefaultLargeSize  = 1 << 20
)

// Config sets the size classes of a Pool. Zero fields take the defaults.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// DefaultConfig returns the default size classes.
func DefaultConfig() Config {
	return Config{
		SmallSize:  DefaultSmallSize,
		MediumSize: DefaultMediumSize,
		LargeSize:  DefaultLargeSize,
	}
}

type tier struct {
	size int
	pool sync.Pool
}

func newTier(size int) *tier {
	t := &tier{size: size}
	t.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return t
}

// Pool hands out slices from the smallest class that fits. It is safe for
// concurrent use.
type Pool struct {
	tiers [3]*tier
}

// NewPool creates a pool. A nil cfg uses DefaultConfig.
func NewPool(cfg *Config) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.SmallSize > 0 {
			c.SmallSize = cfg.SmallSize
		}
		if cfg.MediumSize > 0 {
			c.MediumSize = cfg.MediumSize
		}
		if cfg.LargeSize > 0 {
			c.LargeSize = cfg.LargeSize
		}
	}

	return &Pool{tiers: [3]*tier{
		newTier(c.SmallSize),
		newTier(c.MediumSize),
		newTier(c.LargeSize),
	}}
}

// Get returns a slice of length size. Its capacity is the size class it
// came from, or exactly size when no class fits. Return it with Put.
func (p *Pool) Get(size int) []byte {
	for _, t := range p.tiers {
		if size <= t.size {
			buf := *t.pool.Get().(*[]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to its size class. Slices that did not come from a class
// (by capacity) are left to the garbage collector. buf must not be used
// afterwards.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for _, t := range p.tiers {
		if cap(buf) == t.size {
			full := buf[:cap(buf)]
			t.pool.Put(&full)
			return
		}
	}
}

var globalPool = NewPool(nil)

// Get returns a slice of length size from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a slice obtained from Get to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}

// GetUint32 is Get for the uint32 lengths found in record marks.
func GetUint32(size uint32) []byte {
	return globalPool.Get(int(size))
}
