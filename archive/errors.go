package archive

import (
	"errors"
	"os"
)

var (
	// ErrNotFound is returned when an object does not exist.
	//
	// Stores return an error that satisfies errors.Is(err, ErrNotFound).
	// It maps to os.ErrNotExist so LocalStore errors match without wrapping.
	ErrNotFound = os.ErrNotExist

	// ErrCorrupt is returned when a frame fails validation on restore.
	ErrCorrupt = errors.New("archive: corrupt frame")

	// ErrTooLarge is returned when data does not fit a frame or the
	// restored bytes do not fit the destination buffer.
	ErrTooLarge = errors.New("archive: data too large")

	// ErrUnknownCodec is returned for a codec value this build cannot decode.
	ErrUnknownCodec = errors.New("archive: unknown codec")

	// ErrInvalidName is returned for empty object names.
	ErrInvalidName = errors.New("archive: invalid object name")
)
