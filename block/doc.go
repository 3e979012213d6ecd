// Package block provides the fixed-size block sources that back append buffers.
//
// A Pool reserves BlockCount blocks of BlockSize bytes in a single slab and
// hands them out one at a time. Every block has the same size and a stable
// address for its whole lifetime, which lets buffers keep their bookkeeping
// header inside the block itself.
//
// An Arena serves the same blocks from chunks it maps on demand. It suits
// workloads whose peak is unknown up front; chunks are kept until Close.
//
// # Features
//
//   - Off-heap slabs via anonymous mmap (no GC pressure), or aligned heap slabs
//   - Non-blocking Allocate that fails fast with ErrExhausted
//   - Double-release and foreign-block detection
//   - Optional memory budget through a MemoryAcquirer
//
// # Safety
//
// Allocate and Release are safe for concurrent use on both sources. Close
// refuses to unmap memory while blocks are still outstanding.
package block
