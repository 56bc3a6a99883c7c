package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClasses(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"Empty", 0, DefaultSmallSize},
		{"PathCall", 120, DefaultSmallSize},
		{"SmallBoundary", DefaultSmallSize, DefaultSmallSize},
		{"JustAboveSmall", DefaultSmallSize + 1, DefaultMediumSize},
		{"DirectoryBatch", 10 << 10, DefaultMediumSize},
		{"MediumBoundary", DefaultMediumSize, DefaultMediumSize},
		{"LargeBatch", 300 << 10, DefaultLargeSize},
		{"LargeBoundary", DefaultLargeSize, DefaultLargeSize},
		{"Oversized", DefaultLargeSize + 1, DefaultLargeSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := Get(tt.size)
			defer Put(buf)

			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
		})
	}
}

func TestPut(t *testing.T) {
	t.Run("ReturnsToClass", func(t *testing.T) {
		buf := Get(64)
		buf[0] = 0xff
		Put(buf)

		again := Get(DefaultSmallSize)
		defer Put(again)
		assert.Len(t, again, DefaultSmallSize)
	})

	t.Run("IgnoresForeignSlices", func(t *testing.T) {
		require.NotPanics(t, func() {
			Put(nil)
			Put([]byte{})
			Put(make([]byte, 3*DefaultLargeSize))
		})
	})
}

func TestCustomPool(t *testing.T) {
	t.Run("CustomSizes", func(t *testing.T) {
		pool := NewPool(&Config{SmallSize: 1024, MediumSize: 8192, LargeSize: 65536})

		for size, want := range map[int]int{500: 1024, 2000: 8192, 10000: 65536, 70000: 70000} {
			buf := pool.Get(size)
			assert.Equal(t, want, cap(buf), "size %d", size)
			pool.Put(buf)
		}
	})

	t.Run("ZeroFieldsTakeDefaults", func(t *testing.T) {
		pool := NewPool(&Config{MediumSize: 4096})

		assert.Equal(t, DefaultSmallSize, cap(pool.Get(10)))
		assert.Equal(t, 4096, cap(pool.Get(DefaultSmallSize+1)))
		assert.Equal(t, DefaultLargeSize, cap(pool.Get(5000)))
	})
}

func TestGetUint32(t *testing.T) {
	buf := GetUint32(100 << 10)
	defer Put(buf)

	assert.Len(t, buf, 100<<10)
	assert.Equal(t, DefaultLargeSize, cap(buf))
}

func TestConcurrentUse(t *testing.T) {
	const workers = 16

	var wg sync.WaitGroup
	for id := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 200 {
				buf := Get((id*977 + j*131) % (200 << 10))
				for k := range buf {
					buf[k] = byte(id)
				}
				Put(buf)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGet(b *testing.B) {
	for _, bc := range []struct {
		name string
		size int
	}{
		{"Call", 128},
		{"Batch", 32 << 10},
		{"LargeBatch", 512 << 10},
	} {
		b.Run(bc.name, func(b *testing.B) {
			for b.Loop() {
				Put(Get(bc.size))
			}
		})
	}
}

func BenchmarkGetParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Put(Get(128))
		}
	})
}
