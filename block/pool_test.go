package block

import (
	"sync"
	"testing"

	"github.com/hupe1980/appendbuf/internal/mem"
	"github.com/hupe1980/appendbuf/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestPool(t *testing.T, cfg Config, opts ...Option) *Pool {
	t.Helper()
	p, err := NewPool(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNewPool_InvalidConfig(t *testing.T) {
	cases := []Config{
		{BlockSize: 0, BlockCount: 1},
		{BlockSize: 64, BlockCount: 0},
		{BlockSize: -1, BlockCount: 4},
	}
	for _, cfg := range cases {
		_, err := NewPool(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestPool_AllocateRelease(t *testing.T) {
	for _, offHeap := range []bool{false, true} {
		p := newTestPool(t, Config{BlockSize: 100, BlockCount: 4, OffHeap: offHeap})

		b, err := p.Allocate()
		require.NoError(t, err)
		assert.Equal(t, 100, b.Size())
		assert.Equal(t, 100, cap(b.Data))
		assert.True(t, mem.IsAligned(b.Data, 8), "block start must be 8-byte aligned")
		assert.Equal(t, 1, p.InUse())
		assert.Equal(t, 3, p.Free())

		require.NoError(t, p.Release(b))
		assert.Equal(t, 0, p.InUse())
		assert.Equal(t, 4, p.Free())

		stats := p.Stats()
		assert.Equal(t, uint64(1), stats.Allocs)
		assert.Equal(t, uint64(1), stats.Releases)
		assert.Equal(t, uint64(0), stats.InUse)
	}
}

func TestPool_Exhausted(t *testing.T) {
	p := newTestPool(t, Config{BlockSize: 32, BlockCount: 3})

	var blocks []Block
	for i := 0; i < 3; i++ {
		b, err := p.Allocate()
		require.NoError(t, err)
		blocks = append(blocks, b)
	}

	_, err := p.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, uint64(1), p.Stats().Failures)
	assert.Equal(t, []uint32{0, 1, 2}, p.Outstanding())

	// Releasing one makes exactly one allocation possible again
	require.NoError(t, p.Release(blocks[1]))
	b, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, blocks[1].ID, b.ID)

	for _, b := range []Block{blocks[0], b, blocks[2]} {
		require.NoError(t, p.Release(b))
	}
}

func TestPool_BlocksDoNotOverlap(t *testing.T) {
	p := newTestPool(t, Config{BlockSize: 13, BlockCount: 8})

	var blocks []Block
	for i := 0; i < 8; i++ {
		b, err := p.Allocate()
		require.NoError(t, err)
		for j := range b.Data {
			b.Data[j] = byte(b.ID)
		}
		blocks = append(blocks, b)
	}

	for _, b := range blocks {
		for j := range b.Data {
			require.Equal(t, byte(b.ID), b.Data[j], "block %d byte %d clobbered", b.ID, j)
		}
		require.NoError(t, p.Release(b))
	}
}

func TestPool_DoubleRelease(t *testing.T) {
	p := newTestPool(t, Config{BlockSize: 64, BlockCount: 2})

	b, err := p.Allocate()
	require.NoError(t, err)
	require.NoError(t, p.Release(b))
	assert.ErrorIs(t, p.Release(b), ErrDoubleRelease)
	assert.Equal(t, 2, p.Free())
	assert.Equal(t, uint64(1), p.Stats().Releases)
}

func TestPool_ForeignBlock(t *testing.T) {
	p1 := newTestPool(t, Config{BlockSize: 64, BlockCount: 2})
	p2 := newTestPool(t, Config{BlockSize: 64, BlockCount: 2})

	b, err := p1.Allocate()
	require.NoError(t, err)

	assert.ErrorIs(t, p2.Release(b), ErrForeignBlock)
	assert.ErrorIs(t, p1.Release(Block{ID: 7, Data: b.Data}), ErrForeignBlock)
	assert.ErrorIs(t, p1.Release(Block{ID: b.ID, Data: make([]byte, 64)}), ErrForeignBlock)
	assert.ErrorIs(t, p1.Release(Block{}), ErrForeignBlock)

	require.NoError(t, p1.Release(b))
}

func TestPool_Close(t *testing.T) {
	p, err := NewPool(Config{BlockSize: 4096, BlockCount: 2, OffHeap: true})
	require.NoError(t, err)

	b, err := p.Allocate()
	require.NoError(t, err)

	assert.ErrorIs(t, p.Close(), ErrBlocksOutstanding)

	// Still usable after a refused close
	b.Data[0] = 1
	require.NoError(t, p.Release(b))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Allocate()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_MemoryAcquirer(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 256})
	p := newTestPool(t, Config{BlockSize: 100, BlockCount: 10}, WithMemoryAcquirer(rc))

	b1, err := p.Allocate()
	require.NoError(t, err)
	b2, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, int64(200), rc.MemoryUsage())

	// Budget refuses the third block although the pool has free blocks
	_, err = p.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, 8, p.Free())

	require.NoError(t, p.Release(b1))
	assert.Equal(t, int64(100), rc.MemoryUsage())

	b3, err := p.Allocate()
	require.NoError(t, err)

	require.NoError(t, p.Release(b2))
	require.NoError(t, p.Release(b3))
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestPool_MemoryReturnedWhenExhausted(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1000})
	p := newTestPool(t, Config{BlockSize: 100, BlockCount: 1}, WithMemoryAcquirer(rc))

	b, err := p.Allocate()
	require.NoError(t, err)

	_, err = p.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int64(100), rc.MemoryUsage(), "refused allocation must not leak budget")

	require.NoError(t, p.Release(b))
}

func TestPool_AdviceOnPageSizedBlocks(t *testing.T) {
	p := newTestPool(t, Config{BlockSize: 4096, BlockCount: 4, OffHeap: true}, WithAdvice(true))

	b, err := p.Allocate()
	require.NoError(t, err)
	copy(b.Data, "payload")
	require.NoError(t, p.Release(b))

	b2, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, b.ID, b2.ID)
	require.NoError(t, p.Release(b2))
}

func TestPool_AdviceDisabledForSmallBlocks(t *testing.T) {
	p := newTestPool(t, Config{BlockSize: 100, BlockCount: 4, OffHeap: true}, WithAdvice(true))
	assert.False(t, p.advise)

	h := newTestPool(t, Config{BlockSize: 4096, BlockCount: 1}, WithAdvice(true))
	assert.False(t, h.advise)
}

func TestPool_ConcurrentAllocateRelease(t *testing.T) {
	const (
		workers    = 8
		iterations = 1000
	)
	p := newTestPool(t, Config{BlockSize: 64, BlockCount: 4})

	var g errgroup.Group
	var mu sync.Mutex
	seen := make(map[uint32]bool)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < iterations; i++ {
				b, err := p.Allocate()
				if err != nil {
					continue // exhausted under contention
				}
				mu.Lock()
				if seen[b.ID] {
					mu.Unlock()
					t.Errorf("block %d handed out twice", b.ID)
					return nil
				}
				seen[b.ID] = true
				mu.Unlock()

				mu.Lock()
				delete(seen, b.ID)
				mu.Unlock()
				if err := p.Release(b); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, 4, p.Free())
	stats := p.Stats()
	assert.Equal(t, stats.Allocs, stats.Releases)
}

func TestPool_String(t *testing.T) {
	p := newTestPool(t, Config{BlockSize: 64, BlockCount: 2})
	assert.Contains(t, p.String(), "blockSize: 64")
}
