package archive

import "context"

// Store holds archived frames by name. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put writes an object, replacing any existing one atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the object's bytes or an error matching ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all objects with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
