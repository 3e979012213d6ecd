package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/appendbuf"
	"github.com/hupe1980/appendbuf/block"
	"github.com/hupe1980/appendbuf/resource"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the uploads PutAll runs at once.
const DefaultConcurrency = 4

// Archiver encodes views into frames and moves them through a Store.
// It is safe for concurrent use.
type Archiver struct {
	store       Store
	codec       Codec
	prefix      string
	concurrency int
	controller  *resource.Controller
	logger      *appendbuf.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithCodec sets the compression codec for new frames. Default: CodecNone.
func WithCodec(c Codec) Option {
	return func(a *Archiver) {
		a.codec = c
	}
}

// WithPrefix prepends prefix to every object name.
func WithPrefix(prefix string) Option {
	return func(a *Archiver) {
		a.prefix = prefix
	}
}

// WithConcurrency bounds the number of concurrent uploads in PutAll.
func WithConcurrency(n int) Option {
	return func(a *Archiver) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithResourceController charges uploads against rc's IO budget and runs
// PutAll workers under its background-worker limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(a *Archiver) {
		a.controller = rc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(l *appendbuf.Logger) Option {
	return func(a *Archiver) {
		if l == nil {
			l = appendbuf.NoopLogger()
		}
		a.logger = l
	}
}

// New creates an Archiver over store.
func New(store Store, opts ...Option) *Archiver {
	a := &Archiver{
		store:       store,
		codec:       CodecNone,
		concurrency: DefaultConcurrency,
		logger:      appendbuf.NoopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archiver) key(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	return a.prefix + name, nil
}

// Put archives the bytes of view under name. It does not take ownership of
// view; the caller keeps it alive until Put returns and releases it after.
func (a *Archiver) Put(ctx context.Context, name string, view *appendbuf.Slice) error {
	key, err := a.key(name)
	if err != nil {
		return err
	}

	start := time.Now()
	frame, used, err := encodeFrame(a.codec, view.Bytes())
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", name, err)
	}

	if err := a.controller.AcquireIO(ctx, len(frame)); err != nil {
		return err
	}
	if err := a.store.Put(ctx, key, frame); err != nil {
		a.logger.ErrorContext(ctx, "archive put failed", "name", name, "error", err)
		return fmt.Errorf("archive: put %s: %w", name, err)
	}

	a.logger.DebugContext(ctx, "archived view",
		"name", name,
		"codec", used.String(),
		"raw_bytes", view.Len(),
		"stored_bytes", len(frame),
		"duration", time.Since(start),
	)
	return nil
}

// PutAll archives every view concurrently. The first error cancels the
// remaining uploads and is returned.
func (a *Archiver) PutAll(ctx context.Context, views map[string]*appendbuf.Slice) error {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, name := range names {
		view := views[name]
		g.Go(func() error {
			if a.controller != nil {
				if err := a.controller.AcquireBackground(gctx); err != nil {
					return err
				}
				defer a.controller.ReleaseBackground()
			}
			return a.Put(gctx, name, view)
		})
	}
	return g.Wait()
}

// Restore reads the object name and appends its bytes to a new Buffer
// allocated from src. It fails with ErrTooLarge when the bytes exceed the
// buffer's capacity and with ErrCorrupt when the frame does not validate.
func (a *Archiver) Restore(ctx context.Context, name string, src block.Source, opts ...appendbuf.Option) (*appendbuf.Buffer, error) {
	key, err := a.key(name)
	if err != nil {
		return nil, err
	}

	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("archive: get %s: %w", name, err)
	}
	if err := a.controller.AcquireIO(ctx, len(data)); err != nil {
		return nil, err
	}

	buf, err := appendbuf.New(src, opts...)
	if err != nil {
		return nil, err
	}

	raw, err := decodeFrame(data, buf.Cap())
	if err != nil {
		_ = buf.Close()
		return nil, fmt.Errorf("archive: restore %s: %w", name, err)
	}
	buf.Fill(raw)

	a.logger.DebugContext(ctx, "restored view", "name", name, "bytes", len(raw))
	return buf, nil
}

// Delete removes the object name.
func (a *Archiver) Delete(ctx context.Context, name string) error {
	key, err := a.key(name)
	if err != nil {
		return err
	}
	return a.store.Delete(ctx, key)
}

// List returns the names of archived objects starting with prefix, with the
// archiver's own prefix stripped.
func (a *Archiver) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := a.store.List(ctx, a.prefix+prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, a.prefix))
	}
	return names, nil
}
