package block

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/appendbuf/internal/conv"
	"github.com/hupe1980/appendbuf/internal/mem"
	"github.com/hupe1980/appendbuf/internal/mmap"
)

// DefaultChunkBlocks is the number of blocks carved from each arena chunk.
const DefaultChunkBlocks = 64

// ArenaConfig describes the geometry of an Arena.
type ArenaConfig struct {
	// BlockSize is the usable size of each block in bytes.
	BlockSize int
	// ChunkBlocks is the number of blocks per chunk. Zero means DefaultChunkBlocks.
	ChunkBlocks int
	// MaxChunks bounds growth. Zero means unbounded up to MaxBlocks.
	MaxChunks int
	// OffHeap maps each chunk anonymously instead of allocating it on the Go heap.
	OffHeap bool
}

type arenaChunk struct {
	data    []byte
	mapping *mmap.Mapping
}

// Arena is a growable block source. It starts empty and maps a new chunk
// whenever the free list runs dry, up to MaxChunks. Chunks are only
// returned to the system by Close.
//
// A memory acquirer is charged per chunk, not per block.
type Arena struct {
	blockSize   int
	stride      int
	chunkBlocks int
	maxChunks   int
	offHeap     bool

	mu          sync.Mutex
	chunks      []arenaChunk
	free        []uint32
	outstanding *roaring.Bitmap
	closed      bool

	stats    atomicStats
	acquirer MemoryAcquirer
}

// ArenaOption is a configuration option for Arena.
type ArenaOption func(*Arena)

// WithArenaMemoryAcquirer charges every chunk against acquirer.
func WithArenaMemoryAcquirer(acquirer MemoryAcquirer) ArenaOption {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// NewArena creates an empty Arena. No memory is reserved until the first Allocate.
func NewArena(cfg ArenaConfig, opts ...ArenaOption) (*Arena, error) {
	if cfg.ChunkBlocks == 0 {
		cfg.ChunkBlocks = DefaultChunkBlocks
	}
	if cfg.BlockSize <= 0 || cfg.ChunkBlocks < 0 || cfg.MaxChunks < 0 || cfg.ChunkBlocks > MaxBlocks {
		return nil, fmt.Errorf("%w: block size %d, chunk blocks %d, max chunks %d",
			ErrInvalidConfig, cfg.BlockSize, cfg.ChunkBlocks, cfg.MaxChunks)
	}

	maxChunks := MaxBlocks / cfg.ChunkBlocks
	if cfg.MaxChunks > 0 && cfg.MaxChunks < maxChunks {
		maxChunks = cfg.MaxChunks
	}

	stride := mem.AlignUp(cfg.BlockSize, blockAlign)
	if (stride*cfg.ChunkBlocks)/cfg.ChunkBlocks != stride {
		return nil, fmt.Errorf("%w: chunk size overflows", ErrInvalidConfig)
	}

	a := &Arena{
		blockSize:   cfg.BlockSize,
		stride:      stride,
		chunkBlocks: cfg.ChunkBlocks,
		maxChunks:   maxChunks,
		offHeap:     cfg.OffHeap,
		outstanding: roaring.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Arena) chunkSize() int {
	return a.stride * a.chunkBlocks
}

// Allocate returns a free block, growing the arena by one chunk if needed.
func (a *Arena) Allocate() (Block, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.stats.Failures.Add(1)
		return Block{}, ErrClosed
	}
	if len(a.free) == 0 {
		if err := a.growLocked(); err != nil {
			a.stats.Failures.Add(1)
			return Block{}, err
		}
	}

	n := len(a.free)
	id := a.free[n-1]
	a.free = a.free[:n-1]
	a.outstanding.Add(id)
	a.stats.Allocs.Add(1)

	return Block{ID: id, Data: a.blockData(id)}, nil
}

func (a *Arena) growLocked() error {
	if len(a.chunks) >= a.maxChunks {
		return fmt.Errorf("%w: %d chunks in use", ErrExhausted, len(a.chunks))
	}

	size := a.chunkSize()
	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(size)); err != nil {
			return fmt.Errorf("%w: %w", ErrExhausted, err)
		}
	}

	var c arenaChunk
	if a.offHeap {
		mapping, err := mmap.MapAnon(size)
		if err != nil {
			if a.acquirer != nil {
				a.acquirer.ReleaseMemory(int64(size))
			}
			return fmt.Errorf("failed to map anonymous memory for chunk: %w", err)
		}
		c = arenaChunk{data: mapping.Bytes(), mapping: mapping}
	} else {
		c = arenaChunk{data: mem.AllocAligned(size)}
	}

	base := len(a.chunks) * a.chunkBlocks
	a.chunks = append(a.chunks, c)

	// Push in reverse so the lowest ID of the new chunk is handed out first.
	for i := a.chunkBlocks - 1; i >= 0; i-- {
		id, err := conv.IntToUint32(base + i)
		if err != nil {
			return err
		}
		a.free = append(a.free, id)
	}
	return nil
}

func (a *Arena) blockData(id uint32) []byte {
	c := a.chunks[int(id)/a.chunkBlocks]
	off := (int(id) % a.chunkBlocks) * a.stride
	return c.data[off : off+a.blockSize : off+a.blockSize]
}

// Release returns b to the arena's free list.
func (a *Arena) Release(b Block) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ownsLocked(b) {
		return ErrForeignBlock
	}
	if !a.outstanding.CheckedRemove(b.ID) {
		return ErrDoubleRelease
	}
	a.free = append(a.free, b.ID)
	a.stats.Releases.Add(1)
	return nil
}

func (a *Arena) ownsLocked(b Block) bool {
	if int(b.ID)/a.chunkBlocks >= len(a.chunks) || len(b.Data) != a.blockSize {
		return false
	}
	want := unsafe.Pointer(&a.blockData(b.ID)[0]) //nolint:gosec // pointer identity check only
	return unsafe.Pointer(&b.Data[0]) == want     //nolint:gosec // pointer identity check only
}

// BlockSize returns the usable size of each block.
func (a *Arena) BlockSize() int {
	return a.blockSize
}

// Chunks returns the number of chunks mapped so far.
func (a *Arena) Chunks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks)
}

// Reserved returns the number of bytes held by the arena's chunks.
func (a *Arena) Reserved() int {
	return a.Chunks() * a.chunkSize()
}

// InUse returns the number of outstanding blocks.
func (a *Arena) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.outstanding.GetCardinality())
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		Allocs:   a.stats.Allocs.Load(),
		Releases: a.stats.Releases.Load(),
		Failures: a.stats.Failures.Load(),
		InUse:    uint64(a.InUse()),
	}
}

// Close unmaps every chunk. It is idempotent and fails with
// ErrBlocksOutstanding while any block is still allocated.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	if !a.outstanding.IsEmpty() {
		return fmt.Errorf("%w: %d", ErrBlocksOutstanding, a.outstanding.GetCardinality())
	}
	a.closed = true
	a.free = nil

	var firstErr error
	for _, c := range a.chunks {
		if c.mapping != nil {
			if err := c.mapping.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if a.acquirer != nil && len(a.chunks) > 0 {
		a.acquirer.ReleaseMemory(int64(len(a.chunks) * a.chunkSize()))
	}
	a.chunks = nil
	return firstErr
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{blockSize: %d, chunks: %d, inUse: %d, allocs: %d, releases: %d, failures: %d}",
		a.blockSize, a.Chunks(), s.InUse, s.Allocs, s.Releases, s.Failures,
	)
}

var (
	_ Source = (*Pool)(nil)
	_ Source = (*Arena)(nil)
)
