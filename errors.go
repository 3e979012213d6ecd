package appendbuf

import (
	"errors"
	"fmt"

	"github.com/hupe1980/appendbuf/block"
)

var (
	// ErrAllocationExhausted is returned by New when the block source has no
	// free block. The source's own error stays reachable via errors.Is, so
	// errors.Is(err, block.ErrExhausted) also holds.
	ErrAllocationExhausted = errors.New("appendbuf: allocation exhausted")

	// ErrBufferFull is returned by Write and ReadFrom when the buffer's
	// capacity is reached before all input was consumed.
	ErrBufferFull = errors.New("appendbuf: buffer full")

	// ErrClosed is returned by Write and ReadFrom on a closed Buffer.
	ErrClosed = errors.New("appendbuf: buffer closed")
)

// ErrBlockTooSmall indicates a block that cannot hold the buffer header.
type ErrBlockTooSmall struct {
	Size       int
	HeaderSize int
}

func (e *ErrBlockTooSmall) Error() string {
	return fmt.Sprintf("appendbuf: block of %d bytes is smaller than the %d byte header", e.Size, e.HeaderSize)
}

func translateAllocError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAllocationExhausted) {
		return err
	}
	if errors.Is(err, block.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrAllocationExhausted, err)
	}
	return fmt.Errorf("appendbuf: allocate block: %w", err)
}
