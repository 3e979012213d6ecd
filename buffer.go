package appendbuf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/appendbuf/block"
	"github.com/hupe1980/appendbuf/resource"
)

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer is the unique writer of an append-only buffer.
//
// The zero value is not usable; create Buffers with New. A Buffer must not
// be copied.
type Buffer struct {
	_ noCopy

	h   *handle
	pos int // writer-private; equals the committed length between calls

	controller *resource.Controller
}

// New allocates one block from src and returns an empty Buffer over it.
//
// When src has no free block the error matches ErrAllocationExhausted as
// well as the source's own error.
func New(src block.Source, optFns ...Option) (*Buffer, error) {
	o := applyOptions(optFns)

	start := time.Now()
	blk, err := src.Allocate()
	o.metricsCollector.RecordAllocate(time.Since(start), err)
	if err != nil {
		err = translateAllocError(err)
		o.logger.LogAllocate(context.Background(), 0, 0, err)
		return nil, err
	}

	s, err := newShared(src, blk, o)
	if err != nil {
		if rerr := src.Release(blk); rerr != nil {
			err = errors.Join(err, rerr)
		}
		o.logger.LogAllocate(context.Background(), blk.ID, 0, err)
		return nil, err
	}

	o.logger.LogAllocate(context.Background(), blk.ID, s.capacity(), nil)

	b := &Buffer{
		h:          newHandle(s, "buffer"),
		controller: o.controller,
	}
	track(b, b.h)
	return b, nil
}

// Fill appends as much of p as fits and returns the number of bytes taken.
// Bytes that do not fit are dropped. A closed Buffer takes nothing.
func (b *Buffer) Fill(p []byte) int {
	if !b.h.live() {
		return 0
	}

	s := b.h.s
	n := s.tryAppend(b.pos, p)
	if n > 0 {
		b.pos += n
		s.publish(b.pos)
	}
	s.metrics.RecordFill(len(p), n)
	return n
}

// Write implements io.Writer. Unlike Fill it reports a short write with
// ErrBufferFull.
func (b *Buffer) Write(p []byte) (int, error) {
	if !b.h.live() {
		return 0, ErrClosed
	}
	n := b.Fill(p)
	if n < len(p) {
		return n, ErrBufferFull
	}
	return n, nil
}

// WriteBuf returns the unused tail of the buffer. Bytes written into it stay
// invisible to readers until Advance publishes them. The returned slice is
// only valid until the next append or Close.
func (b *Buffer) WriteBuf() []byte {
	if !b.h.live() {
		return nil
	}
	return b.h.s.data[b.pos:]
}

// Advance publishes the next n bytes of the slice returned by WriteBuf.
// It panics if n is negative or exceeds Remaining.
func (b *Buffer) Advance(n int) {
	if !b.h.live() {
		panic("appendbuf: Advance on closed Buffer")
	}
	s := b.h.s
	if n < 0 || n > s.capacity()-b.pos {
		panic(fmt.Sprintf("appendbuf: advanced past the end of a Buffer, the remaining space was %d and the desired advance was %d",
			s.capacity()-b.pos, n))
	}
	if n == 0 {
		return
	}
	b.pos += n
	s.publish(b.pos)
	s.metrics.RecordFill(n, n)
}

// ReadFrom implements io.ReaderFrom. It reads from r until EOF or until the
// buffer is full; in the latter case it returns ErrBufferFull, since more
// input may remain.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	if !b.h.live() {
		return 0, ErrClosed
	}

	var total int64
	for {
		p := b.WriteBuf()
		if len(p) == 0 {
			return total, ErrBufferFull
		}
		n, err := r.Read(p)
		if n > 0 {
			b.Advance(n)
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// ReadFromContext is ReadFrom with cancellation and, when the Buffer was
// created WithResourceController, IO rate limiting.
func (b *Buffer) ReadFromContext(ctx context.Context, r io.Reader) (int64, error) {
	return b.ReadFrom(resource.NewRateLimitedReader(ctx, r, b.controller))
}

// Len returns the committed length. It is safe to call while the owner
// appends. A closed Buffer reports zero.
func (b *Buffer) Len() int {
	if !b.h.live() {
		return 0
	}
	return b.h.s.committedLen()
}

// Cap returns the buffer's fixed capacity, or zero once closed.
func (b *Buffer) Cap() int {
	if !b.h.live() {
		return 0
	}
	return b.h.s.capacity()
}

// Remaining returns how many more bytes the buffer accepts.
func (b *Buffer) Remaining() int {
	if !b.h.live() {
		return 0
	}
	s := b.h.s
	return s.capacity() - s.committedLen()
}

// Bytes returns the committed bytes without taking a reference. The result
// must not be modified and must not be used after Close; take a Slice for a
// view that outlives the Buffer.
func (b *Buffer) Bytes() []byte {
	if !b.h.live() {
		return nil
	}
	s := b.h.s
	n := s.committedLen()
	return s.data[:n:n]
}

// Slice returns a view of everything committed so far. Later appends are
// not visible through it. The caller must Release the view. A closed Buffer
// returns nil.
func (b *Buffer) Slice() *Slice {
	if !b.h.live() {
		return nil
	}
	s := b.h.s
	n := s.committedLen()
	s.incRef()
	s.metrics.RecordSlice()
	return newSlice(s, 0, n)
}

// Close gives up the writer's reference. The block returns to its source
// once every Slice is released as well. Close is idempotent.
func (b *Buffer) Close() error {
	_, err := b.h.drop()
	return err
}

// String formats the committed bytes for debugging.
func (b *Buffer) String() string {
	if !b.h.live() {
		return "Buffer(closed)"
	}
	return fmt.Sprintf("Buffer(len=%d cap=%d %v)", b.Len(), b.Cap(), b.Bytes())
}
