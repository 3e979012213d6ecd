package block

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/appendbuf/internal/conv"
	"github.com/hupe1980/appendbuf/internal/mem"
	"github.com/hupe1980/appendbuf/internal/mmap"
)

// blockAlign keeps every block start 8-byte aligned so 64-bit atomics
// stored at the head of a block are valid on all platforms.
const blockAlign = 8

// MaxBlocks bounds BlockCount so block IDs fit in a uint32 on every platform.
const MaxBlocks = math.MaxInt32

// Config describes the geometry of a Pool.
type Config struct {
	// BlockSize is the usable size of each block in bytes.
	BlockSize int
	// BlockCount is the number of blocks in the pool.
	BlockCount int
	// OffHeap places the slab in an anonymous memory mapping instead of the Go heap.
	OffHeap bool
}

// Stats tracks pool usage.
//
//   - Allocs: cumulative successful allocations
//   - Releases: cumulative successful releases
//   - Failures: cumulative allocations refused (exhausted, budget or closed)
//   - InUse: blocks currently outstanding
type Stats struct {
	Allocs   uint64
	Releases uint64
	Failures uint64
	InUse    uint64
}

type atomicStats struct {
	Allocs   atomic.Uint64
	Releases atomic.Uint64
	Failures atomic.Uint64
}

// Pool is a fixed-size, fixed-count block source.
type Pool struct {
	blockSize  int
	blockCount int
	stride     int
	slab       []byte
	mapping    *mmap.Mapping // nil for heap slabs

	mu          sync.Mutex
	free        []uint32
	outstanding *roaring.Bitmap
	closed      bool

	stats    atomicStats
	acquirer MemoryAcquirer
	advise   bool
}

// Option is a configuration option for Pool.
type Option func(*Pool)

// WithMemoryAcquirer charges every allocated block against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(p *Pool) {
		p.acquirer = acquirer
	}
}

// WithAdvice enables madvise hints on off-heap blocks: WILLNEED on
// allocation and DONTNEED on release. Ignored for heap slabs and for block
// sizes that are not a multiple of the page size, since advice on a partial
// page would reach into the neighbouring block.
func WithAdvice(enabled bool) Option {
	return func(p *Pool) {
		p.advise = enabled
	}
}

// NewPool creates a Pool with the given geometry.
func NewPool(cfg Config, opts ...Option) (*Pool, error) {
	if cfg.BlockSize <= 0 || cfg.BlockCount <= 0 || cfg.BlockCount > MaxBlocks {
		return nil, fmt.Errorf("%w: block size %d, block count %d", ErrInvalidConfig, cfg.BlockSize, cfg.BlockCount)
	}

	stride := mem.AlignUp(cfg.BlockSize, blockAlign)
	total := stride * cfg.BlockCount
	if total/cfg.BlockCount != stride {
		return nil, fmt.Errorf("%w: slab size overflows", ErrInvalidConfig)
	}

	p := &Pool{
		blockSize:   cfg.BlockSize,
		blockCount:  cfg.BlockCount,
		stride:      stride,
		outstanding: roaring.New(),
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.advise && (!cfg.OffHeap || stride%os.Getpagesize() != 0) {
		p.advise = false
	}

	if cfg.OffHeap {
		mapping, err := mmap.MapAnon(total)
		if err != nil {
			return nil, fmt.Errorf("failed to map anonymous memory for pool: %w", err)
		}
		p.mapping = mapping
		p.slab = mapping.Bytes()
	} else {
		p.slab = mem.AllocAligned(total)
	}

	// LIFO free list: recently released blocks are reused first while
	// their pages are still warm.
	p.free = make([]uint32, cfg.BlockCount)
	for i := range p.free {
		id, err := conv.IntToUint32(cfg.BlockCount - 1 - i)
		if err != nil {
			return nil, err
		}
		p.free[i] = id
	}

	return p, nil
}

// Allocate returns a free block. It never blocks.
func (p *Pool) Allocate() (Block, error) {
	if p.acquirer != nil {
		if err := p.acquirer.AcquireMemory(int64(p.blockSize)); err != nil {
			p.stats.Failures.Add(1)
			return Block{}, fmt.Errorf("%w: %w", ErrExhausted, err)
		}
	}

	id, err := p.pop()
	if err != nil {
		if p.acquirer != nil {
			p.acquirer.ReleaseMemory(int64(p.blockSize))
		}
		p.stats.Failures.Add(1)
		return Block{}, err
	}

	off := int(id) * p.stride
	b := Block{
		ID:   id,
		Data: p.slab[off : off+p.blockSize : off+p.blockSize],
	}

	if p.advise && p.mapping != nil {
		_ = p.mapping.AdviseRange(off, p.blockSize, mmap.AccessWillNeed)
	}

	p.stats.Allocs.Add(1)
	return b, nil
}

func (p *Pool) pop() (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrClosed
	}
	n := len(p.free)
	if n == 0 {
		return 0, ErrExhausted
	}
	id := p.free[n-1]
	p.free = p.free[:n-1]
	p.outstanding.Add(id)
	return id, nil
}

// Release returns b to the pool. Releasing a block twice or a block from
// another pool is reported, never silently accepted.
func (p *Pool) Release(b Block) error {
	if !p.owns(b) {
		return ErrForeignBlock
	}

	p.mu.Lock()
	if !p.outstanding.CheckedRemove(b.ID) {
		p.mu.Unlock()
		return ErrDoubleRelease
	}
	// Advice runs before the block is back on the free list so it can
	// never zero pages of a block that was already handed out again.
	if p.advise && p.mapping != nil {
		_ = p.mapping.AdviseRange(int(b.ID)*p.stride, p.blockSize, mmap.AccessDontNeed)
	}
	p.free = append(p.free, b.ID)
	p.mu.Unlock()

	if p.acquirer != nil {
		p.acquirer.ReleaseMemory(int64(p.blockSize))
	}
	p.stats.Releases.Add(1)
	return nil
}

// owns reports whether b points at the start of block b.ID in this slab.
func (p *Pool) owns(b Block) bool {
	if int64(b.ID) >= int64(p.blockCount) || len(b.Data) != p.blockSize || len(p.slab) == 0 {
		return false
	}
	want := unsafe.Pointer(&p.slab[int(b.ID)*p.stride]) //nolint:gosec // pointer identity check only
	return unsafe.Pointer(&b.Data[0]) == want           //nolint:gosec // pointer identity check only
}

// BlockSize returns the usable size of each block.
func (p *Pool) BlockSize() int {
	return p.blockSize
}

// BlockCount returns the total number of blocks.
func (p *Pool) BlockCount() int {
	return p.blockCount
}

// InUse returns the number of outstanding blocks.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.outstanding.GetCardinality())
}

// Free returns the number of blocks available for allocation.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Outstanding returns the IDs of all allocated blocks in ascending order.
func (p *Pool) Outstanding() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding.ToArray()
}

// Stats returns the current pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Allocs:   p.stats.Allocs.Load(),
		Releases: p.stats.Releases.Load(),
		Failures: p.stats.Failures.Load(),
		InUse:    uint64(p.InUse()),
	}
}

// Close releases the slab. It is idempotent and fails with
// ErrBlocksOutstanding while any block is still allocated.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if !p.outstanding.IsEmpty() {
		return fmt.Errorf("%w: %d", ErrBlocksOutstanding, p.outstanding.GetCardinality())
	}
	p.closed = true
	p.free = nil

	if p.mapping != nil {
		return p.mapping.Close()
	}
	return nil
}

func (p *Pool) String() string {
	s := p.Stats()
	return fmt.Sprintf(
		"Pool{blockSize: %d, blocks: %d, inUse: %d, allocs: %d, releases: %d, failures: %d}",
		p.blockSize, p.blockCount, s.InUse, s.Allocs, s.Releases, s.Failures,
	)
}
