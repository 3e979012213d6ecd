//go:build !unix && !windows

package mmap

// Platforms without mmap fall back to heap memory. The slab is then visible
// to the garbage collector but behaves identically otherwise.
func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), func([]byte) error { return nil }, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	_ = data
	_ = pattern
	return nil
}
