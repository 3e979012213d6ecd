// Package mmap provides anonymous memory mappings for off-heap block storage.
//
// # Overview
//
// Buffers that live in anonymous mappings are invisible to the Go garbage
// collector: a block pool can reserve a large slab once and hand out fixed
// regions of it without adding scan work or heap pressure.
//
// # Usage
//
//	m, err := mmap.MapAnon(blockSize * blockCount)
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to the slab
//	data := m.Bytes()
//
//	// Tell the kernel one block's pages may be dropped
//	_ = m.AdviseRange(offset, blockSize, mmap.AccessDontNeed)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) for hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advice is a no-op)
//
// # Thread Safety
//
// Mapping is safe for concurrent use. Close is idempotent and
// guarded by an atomic flag. Callers must ensure no goroutine touches Bytes()
// after Close returns.
package mmap
