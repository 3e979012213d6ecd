// Package resource provides a Controller that governs the memory, concurrency
// and IO spent around append buffers.
//
// The Controller manages three resource types:
//
//   - Memory: a byte budget for blocks handed out by a block.Pool (non-blocking, fail-fast)
//   - Concurrency: a bound on background jobs such as archive uploads
//   - IO: a token bucket throttling ingest through Buffer.ReadFromContext
//
// # Memory Budget
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MB of live blocks
//	})
//	pool, _ := block.NewPool(block.Config{BlockSize: 4096, BlockCount: 1 << 16},
//	    block.WithMemoryAcquirer(rc))
//
// A pool whose budget is spent reports block.ErrExhausted, the same as a pool
// with no free blocks.
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 10 << 20, // 10MB/s
//	})
//	reader := resource.NewRateLimitedReader(ctx, conn, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
