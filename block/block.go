package block

import "errors"

var (
	// ErrExhausted is returned by Allocate when no free block remains.
	ErrExhausted = errors.New("block: source exhausted")
	// ErrDoubleRelease is returned when a block is released that is not outstanding.
	ErrDoubleRelease = errors.New("block: block released twice")
	// ErrForeignBlock is returned when a block is released to a pool that did not allocate it.
	ErrForeignBlock = errors.New("block: block does not belong to this pool")
	// ErrClosed is returned when the pool has been closed.
	ErrClosed = errors.New("block: pool is closed")
	// ErrBlocksOutstanding is returned by Close while blocks are still allocated.
	ErrBlocksOutstanding = errors.New("block: blocks still outstanding")
	// ErrInvalidConfig is returned for a non-positive block size or count.
	ErrInvalidConfig = errors.New("block: invalid config")
)

// Block is a fixed-size region handed out by a Source.
// Data has length and capacity equal to the source's block size.
type Block struct {
	ID   uint32
	Data []byte
}

// Size returns the usable size of the block in bytes.
func (b Block) Size() int {
	return len(b.Data)
}

// Source supplies fixed-size blocks. Implementations must be safe for
// concurrent use.
type Source interface {
	// Allocate returns a free block or an error matching ErrExhausted.
	Allocate() (Block, error)
	// Release returns a block obtained from Allocate.
	Release(b Block) error
}

// MemoryAcquirer is an interface for acquiring memory.
// *resource.Controller satisfies it.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}
