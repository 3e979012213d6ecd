package appendbuf

import (
	"fmt"
	"io"
)

// Slice is an immutable view of a committed range of a Buffer. It keeps the
// underlying block alive until Release.
//
// Reads on one Slice may run concurrently, but not concurrently with its
// Release: a goroutine that may outlive another holder's Release must hold
// its own view, taken with Clone. Methods accept a nil receiver, which
// behaves like an empty, released view.
type Slice struct {
	h   *handle
	off int
	n   int
}

func newSlice(s *shared, off, n int) *Slice {
	sl := &Slice{
		h:   newHandle(s, "slice"),
		off: off,
		n:   n,
	}
	track(sl, sl.h)
	return sl
}

func (v *Slice) live() bool {
	return v != nil && v.h.live()
}

// Bytes returns the viewed bytes. The result must not be modified and must
// not be used after Release. A released Slice returns nil.
func (v *Slice) Bytes() []byte {
	if !v.live() {
		return nil
	}
	end := v.off + v.n
	return v.h.s.data[v.off:end:end]
}

// Len returns the number of viewed bytes, or zero once released.
func (v *Slice) Len() int {
	if !v.live() {
		return 0
	}
	return v.n
}

// IsEmpty reports whether the view holds no bytes.
func (v *Slice) IsEmpty() bool {
	return v.Len() == 0
}

// At returns the byte at index i. It panics if i is out of range.
func (v *Slice) At(i int) byte {
	if i < 0 || i >= v.Len() {
		panic(fmt.Sprintf("appendbuf: index out of range of a Slice, the length was %d and the index was %d", v.Len(), i))
	}
	return v.h.s.data[v.off+i]
}

// Clone returns a new view of the same range. It takes a reference and copies
// no bytes; the clone must be released independently. It panics if the
// Slice was released.
func (v *Slice) Clone() *Slice {
	v.mustLive()
	return v.sub(v.off, v.n)
}

// CopyBytes returns a copy of the viewed bytes that outlives the Slice, or
// nil once released.
func (v *Slice) CopyBytes() []byte {
	b := v.Bytes()
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// SliceFrom returns a new view starting at offset off. It panics if off
// exceeds Len or the Slice was released.
func (v *Slice) SliceFrom(off int) *Slice {
	v.mustLive()
	if off < 0 || off > v.n {
		panic(fmt.Sprintf("appendbuf: sliced past the end of a Slice, the length was %d and the desired offset was %d", v.n, off))
	}
	return v.sub(v.off+off, v.n-off)
}

// SliceTo returns a new view of the first n bytes. It panics if n exceeds
// Len or the Slice was released.
func (v *Slice) SliceTo(n int) *Slice {
	v.mustLive()
	if n < 0 || n > v.n {
		panic(fmt.Sprintf("appendbuf: sliced past the end of a Slice, the length was %d and the desired length was %d", v.n, n))
	}
	return v.sub(v.off, n)
}

// Sub returns a new view of bytes [start, end). It panics unless
// 0 <= start <= end <= Len.
func (v *Slice) Sub(start, end int) *Slice {
	v.mustLive()
	if start < 0 || start > v.n {
		panic(fmt.Sprintf("appendbuf: sliced past the end of a Slice, the length was %d and the desired offset was %d", v.n, start))
	}
	if end < start || end > v.n {
		panic(fmt.Sprintf("appendbuf: sliced past the end of a Slice, the length was %d and the desired length was %d", v.n-start, end-start))
	}
	return v.sub(v.off+start, end-start)
}

func (v *Slice) mustLive() {
	if !v.live() {
		panic("appendbuf: use of released Slice")
	}
}

func (v *Slice) sub(off, n int) *Slice {
	v.h.s.incRef()
	return newSlice(v.h.s, off, n)
}

// ReadAt implements io.ReaderAt over the viewed bytes.
func (v *Slice) ReadAt(p []byte, off int64) (int, error) {
	b := v.Bytes()
	if off < 0 {
		return 0, fmt.Errorf("appendbuf: negative offset %d", off)
	}
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteTo implements io.WriterTo.
func (v *Slice) WriteTo(w io.Writer) (int64, error) {
	b := v.Bytes()
	if len(b) == 0 {
		return 0, nil
	}
	n, err := w.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// Release drops the view's reference. It is idempotent and safe on nil.
func (v *Slice) Release() error {
	if v == nil {
		return nil
	}
	_, err := v.h.drop()
	return err
}

// String formats the viewed bytes for debugging.
func (v *Slice) String() string {
	if !v.live() {
		return "Slice(released)"
	}
	return fmt.Sprintf("Slice(len=%d %v)", v.n, v.Bytes())
}
