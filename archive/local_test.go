package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	ifs "github.com/hupe1980/appendbuf/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/b/obj", []byte("data")))

		got, err := store.Get(ctx, "a/b/obj")
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), got)

		require.NoError(t, store.Put(ctx, "a/b/obj", []byte("replaced")))
		got, err = store.Get(ctx, "a/b/obj")
		require.NoError(t, err)
		assert.Equal(t, []byte("replaced"), got)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a/c", []byte("x")))
		require.NoError(t, store.Put(ctx, "z", []byte("x")))

		names, err := store.List(ctx, "a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"a/b/obj", "a/c"}, names)

		entries, err := os.ReadDir(filepath.Join(dir, "a", "b"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary files must not remain")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "z"))
		require.NoError(t, store.Delete(ctx, "z"))
		_, err := store.Get(ctx, "z")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InvalidName", func(t *testing.T) {
		assert.ErrorIs(t, store.Put(ctx, "../escape", []byte("x")), ErrInvalidName)
		assert.ErrorIs(t, store.Put(ctx, "", []byte("x")), ErrInvalidName)
	})

	t.Run("MissingRoot", func(t *testing.T) {
		names, err := NewLocalStore(filepath.Join(dir, "absent")).List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestLocalStoreArchiver(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, 256, 2)
	arc := New(NewLocalStore(t.TempDir()), WithCodec(CodecZSTD), WithPrefix("snapshots/"))

	require.NoError(t, arc.Put(ctx, "one", sealed(t, pool, []byte("persisted bytes"))))

	buf, err := arc.Restore(ctx, "one", pool)
	require.NoError(t, err)
	defer buf.Close()
	assert.Equal(t, "persisted bytes", string(buf.Bytes()))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got, "store must copy on put")

	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "store must copy on get")

	assert.False(t, store.Corrupt("missing", 0))
}

func TestLocalStoreFaults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	faulty := ifs.NewFaultyFS(nil)
	store := newLocalStoreFS(dir, faulty)

	require.NoError(t, store.Put(ctx, "obj", []byte("original")))

	tests := []struct {
		name  string
		fault ifs.Fault
	}{
		{"Write", ifs.Fault{FailAfterBytes: 2}},
		{"Sync", ifs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"Close", ifs.Fault{FailAfterBytes: -1, FailOnClose: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faulty.ClearRules()
			faulty.AddRule(tmpPrefix, tt.fault)

			err := store.Put(ctx, "obj", []byte("replacement"))
			assert.ErrorIs(t, err, ifs.ErrInjected)

			got, err := store.Get(ctx, "obj")
			require.NoError(t, err)
			assert.Equal(t, "original", string(got), "failed put must leave the old object")

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary file must be removed")
		})
	}

	t.Run("Rename", func(t *testing.T) {
		faulty.ClearRules()
		faulty.AddRule(filepath.Join(dir, "obj"), ifs.Fault{FailAfterBytes: -1, FailOnRename: true})

		err := store.Put(ctx, "obj", []byte("replacement"))
		assert.ErrorIs(t, err, ifs.ErrInjected)

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"obj"}, names)
	})
}
