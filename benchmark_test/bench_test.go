package benchmark_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/appendbuf"
	"github.com/hupe1980/appendbuf/archive"
	"github.com/hupe1980/appendbuf/block"
	"github.com/hupe1980/appendbuf/testutil"
)

func newPool(b *testing.B, capacity, count int, offHeap bool) *block.Pool {
	b.Helper()
	pool, err := block.NewPool(block.Config{
		BlockSize:  appendbuf.HeaderSize + capacity,
		BlockCount: count,
		OffHeap:    offHeap,
	})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = pool.Close() })
	return pool
}

func BenchmarkNewClose(b *testing.B) {
	for _, offHeap := range []bool{false, true} {
		b.Run(fmt.Sprintf("offheap=%t", offHeap), func(b *testing.B) {
			pool := newPool(b, 4096-appendbuf.HeaderSize, 1, offHeap)
			BenchLoop(b, 1, func(int) {
				buf, err := appendbuf.New(pool)
				if err != nil {
					b.Fatal(err)
				}
				_ = buf.Close()
			})
		})
	}
}

func BenchmarkNewClose_Arena(b *testing.B) {
	arena, err := block.NewArena(block.ArenaConfig{BlockSize: 4096})
	if err != nil {
		b.Fatal(err)
	}
	defer arena.Close()

	BenchLoop(b, 1, func(int) {
		buf, err := appendbuf.New(arena)
		if err != nil {
			b.Fatal(err)
		}
		_ = buf.Close()
	})
}

func BenchmarkFill(b *testing.B) {
	for _, size := range []int{16, 256, 4096} {
		b.Run(fmt.Sprintf("chunk=%d", size), func(b *testing.B) {
			pool := newPool(b, 1<<20, 1, false)
			buf, err := appendbuf.New(pool)
			if err != nil {
				b.Fatal(err)
			}
			defer func() { _ = buf.Close() }()

			chunk := testutil.NewRNG(1).Bytes(size)
			b.SetBytes(int64(size))
			BenchLoop(b, 1, func(int) {
				if buf.Fill(chunk) < size {
					// Full: start over with a fresh block.
					_ = buf.Close()
					buf, err = appendbuf.New(pool)
					if err != nil {
						b.Fatal(err)
					}
				}
			})
		})
	}
}

func BenchmarkSliceRelease(b *testing.B) {
	pool := newPool(b, 4096, 1, false)
	buf, err := appendbuf.New(pool)
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Close()
	buf.Fill(testutil.Pattern(1024))

	BenchLoop(b, 1, func(int) {
		v := buf.Slice()
		_ = v.Release()
	})
}

func BenchmarkSub_Parallel(b *testing.B) {
	pool := newPool(b, 4096, 1, false)
	buf, err := appendbuf.New(pool)
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Close()
	buf.Fill(testutil.Pattern(1024))

	root := buf.Slice()
	defer root.Release()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			v := root.Sub(16, 64)
			_ = v.Release()
		}
	})
}

func BenchmarkReadFrom(b *testing.B) {
	const size = 64 << 10
	pool := newPool(b, size, 1, false)
	data := testutil.NewRNG(2).Bytes(size)

	b.SetBytes(size)
	BenchLoop(b, 1, func(int) {
		buf, err := appendbuf.New(pool)
		if err != nil {
			b.Fatal(err)
		}
		// The block fits exactly, so ErrBufferFull is expected.
		if _, err := buf.ReadFrom(bytes.NewReader(data)); err != nil && !errors.Is(err, appendbuf.ErrBufferFull) {
			b.Fatal(err)
		}
		_ = buf.Close()
	})
}

func BenchmarkArchivePut(b *testing.B) {
	const size = 64 << 10
	ctx := context.Background()
	pool := newPool(b, size, 1, false)

	buf, err := appendbuf.New(pool)
	if err != nil {
		b.Fatal(err)
	}
	buf.Fill(testutil.NewRNG(3).Compressible(size))
	view := buf.Slice()
	_ = buf.Close()
	defer view.Release()

	for _, codec := range []archive.Codec{archive.CodecNone, archive.CodecLZ4, archive.CodecZSTD} {
		b.Run(codec.String(), func(b *testing.B) {
			arc := archive.New(archive.NewMemoryStore(), archive.WithCodec(codec))
			b.SetBytes(size)
			BenchLoop(b, 1, func(int) {
				if err := arc.Put(ctx, "bench", view); err != nil {
					b.Fatal(err)
				}
			})
		})
	}
}
