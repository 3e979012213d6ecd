package appendbuf

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/appendbuf/block"
	"github.com/hupe1980/appendbuf/internal/conv"
)

// header is laid out at the start of every block. It holds no Go pointers,
// so it may live in off-heap memory.
//
// committed only grows. Bytes below it are immutable; bytes at or above it
// belong to the writer. refs counts the writer and every live Slice.
type header struct {
	capacity  uint64
	committed atomic.Uint64
	refs      atomic.Int64
}

// HeaderSize is the number of bytes at the start of each block reserved for
// buffer bookkeeping. A block of n bytes yields a buffer of n-HeaderSize bytes.
const HeaderSize = int(unsafe.Sizeof(header{}))

// shared is the Go-side record every handle of one buffer points to. The
// mutable counters live in hdr, inside the block itself.
type shared struct {
	hdr  *header
	data []byte // block bytes after the header, len == capacity

	blk      block.Block
	src      block.Source
	released atomic.Bool

	logger        *Logger
	metrics       MetricsCollector
	leakDetection bool
}

func newShared(src block.Source, blk block.Block, o options) (*shared, error) {
	if len(blk.Data) < HeaderSize {
		return nil, &ErrBlockTooSmall{Size: len(blk.Data), HeaderSize: HeaderSize}
	}
	if uintptr(unsafe.Pointer(&blk.Data[0]))%8 != 0 { //nolint:gosec // alignment check only
		return nil, fmt.Errorf("appendbuf: block %d is not 8-byte aligned", blk.ID)
	}

	capacity, err := conv.IntToUint64(len(blk.Data) - HeaderSize)
	if err != nil {
		return nil, err
	}

	hdr := (*header)(unsafe.Pointer(&blk.Data[0])) //nolint:gosec // header lives in the block
	hdr.capacity = capacity
	hdr.committed.Store(0)
	hdr.refs.Store(1)

	end := len(blk.Data)
	return &shared{
		hdr:           hdr,
		data:          blk.Data[HeaderSize:end:end],
		blk:           blk,
		src:           src,
		logger:        o.logger,
		metrics:       o.metricsCollector,
		leakDetection: o.leakDetection,
	}, nil
}

func (s *shared) capacity() int {
	return int(s.hdr.capacity) //nolint:gosec // bounded by len(blk.Data)
}

// tryAppend copies as much of p as fits at off. The target range is at or
// above committed, so no reader can observe the plain writes.
func (s *shared) tryAppend(off int, p []byte) int {
	return copy(s.data[off:], p)
}

// publish makes data[:n] visible to every goroutine that subsequently loads
// the committed length. It must follow the writes it publishes.
func (s *shared) publish(n int) {
	s.hdr.committed.Store(uint64(n)) //nolint:gosec // 0 <= n <= capacity
}

func (s *shared) committedLen() int {
	return int(s.hdr.committed.Load()) //nolint:gosec // bounded by capacity
}

func (s *shared) incRef() {
	s.hdr.refs.Add(1)
}

// decRef drops one reference and returns the remaining count. The caller
// that observes zero must call releaseBlock.
func (s *shared) decRef() int64 {
	n := s.hdr.refs.Add(-1)
	if n < 0 {
		panic("appendbuf: reference count underflow")
	}
	return n
}

// releaseBlock hands the block back to its source. After it returns the
// header must not be touched: the block may already belong to a new buffer.
func (s *shared) releaseBlock() error {
	if s.released.Swap(true) {
		panic("appendbuf: block released twice")
	}

	err := s.src.Release(s.blk)
	s.metrics.RecordRelease(err)
	s.logger.LogRelease(context.Background(), s.blk.ID, err)
	return err
}

// handle is one counted reference to a shared buffer. Dropping it is
// idempotent so a Close or Release called twice cannot skew the count.
type handle struct {
	s        *shared
	dropped  atomic.Bool
	kind     string
	cleanup  runtime.Cleanup
	tracking bool
}

func newHandle(s *shared, kind string) *handle {
	return &handle{s: s, kind: kind}
}

// track registers a leak check that fires if owner becomes unreachable
// while the handle is still live.
func track[T any](owner *T, h *handle) {
	if !h.s.leakDetection {
		return
	}
	h.cleanup = runtime.AddCleanup(owner, func(h *handle) {
		if !h.dropped.Load() {
			h.s.metrics.RecordLeak()
			h.s.logger.LogLeak(context.Background(), h.kind, h.s.blk.ID)
		}
	}, h)
	h.tracking = true
}

func (h *handle) live() bool {
	return !h.dropped.Load()
}

// drop releases the reference. It reports whether this call dropped it and
// the error from returning the block when this was the last reference.
func (h *handle) drop() (bool, error) {
	if h.dropped.Swap(true) {
		return false, nil
	}
	if h.tracking {
		h.cleanup.Stop()
	}
	if h.s.decRef() == 0 {
		return true, h.s.releaseBlock()
	}
	return true, nil
}
