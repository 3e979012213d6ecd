// Package appendbuf provides a single-writer, multi-reader append-only byte
// buffer backed by one fixed-size memory block.
//
// A Buffer is the writer. It appends bytes and hands out Slices: immutable,
// reference-counted views of the bytes committed so far. Readers never block
// the writer and never observe partially written data; the only
// synchronization is an atomic committed length stored alongside a reference
// count in a small header at the front of the block. When the writer and
// every Slice have been released, the block goes back to its block.Source.
//
// # Quick Start
//
//	pool, _ := block.NewPool(block.Config{BlockSize: 4096, BlockCount: 64})
//	defer pool.Close()
//
//	buf, err := appendbuf.New(pool)
//	if err != nil {
//		return err // errors.Is(err, appendbuf.ErrAllocationExhausted)
//	}
//	defer buf.Close()
//
//	buf.Fill([]byte("hello"))
//	view := buf.Slice()
//	defer view.Release()
//
//	buf.Fill([]byte(" world")) // view still reads "hello"
//
// # Concurrency
//
// Fill, Write, ReadFrom, WriteBuf, Advance and Close belong to the goroutine
// that owns the Buffer. Slice, Len, Remaining and Bytes may be called from
// other goroutines while the owner appends, but not after Close. A Slice
// must not be read while it is being released, so every goroutine that
// outlives another holder takes its own view with Clone and releases it
// when done.
//
// # Capacity
//
// Capacity is fixed when the block is allocated: the block size minus
// HeaderSize. Fill truncates silently once the buffer is full and reports how
// many bytes it took. Write and ReadFrom, which follow the io contracts,
// report ErrBufferFull instead.
//
// # Observability
//
// Buffers accept WithLogger and WithMetricsCollector. The observability
// package exports metrics to Prometheus. WithLeakDetection reports handles
// garbage collected without Close or Release.
package appendbuf
