package mmap

import (
	"sync/atomic"
)

// Mapping is an anonymous read-write mapping that owns its pages.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	unmap  func([]byte) error
}

// MapAnon creates a zero-filled anonymous mapping of size bytes.
// The memory lives outside the Go heap until Close is called.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped memory, or nil once closed. Slices obtained
// earlier must not be touched after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Closed reports whether Close has been called.
func (m *Mapping) Closed() bool {
	return m.closed.Load()
}

// Advise hints how the whole mapping will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	return m.AdviseRange(0, m.size, pattern)
}

// AdviseRange hints how the n bytes at off will be accessed. Ranges that
// do not start on a page boundary are accepted and ignored by the kernel.
func (m *Mapping) AdviseRange(off, n int, pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if off < 0 || n < 0 || off > m.size-n {
		return ErrOutOfBounds
	}
	return osAdvise(m.data[off:off+n:off+n], pattern)
}
