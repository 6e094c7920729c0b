package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/connector/core"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path, zap.NewNop())
	ctx := context.Background()

	st := core.State{
		"customers":       {Cursor: "2024-06-01T00:00:00Z", UpdatedAt: time.Now().UTC()},
		"inventory_items": {Cursor: "2024-05-20T12:00:00Z"},
	}
	require.NoError(t, store.Save(ctx, st))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st["customers"].Cursor, loaded["customers"].Cursor)
	assert.Equal(t, st["inventory_items"].Cursor, loaded["inventory_items"].Cursor)
}

func TestFileStoreMissingFileIsFresh(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st)
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	store := NewFileStore(path, zap.NewNop())

	require.NoError(t, store.Save(context.Background(), core.State{
		"customers": {Cursor: "2024-01-01T00:00:00Z"},
	}))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestAdvance(t *testing.T) {
	t.Run("sets cursor on empty state", func(t *testing.T) {
		st := Advance(core.State{}, "customers", "2024-06-01T00:00:00Z")
		assert.Equal(t, "2024-06-01T00:00:00Z", st["customers"].Cursor)
		assert.False(t, st["customers"].UpdatedAt.IsZero())
	})

	t.Run("moves forward only", func(t *testing.T) {
		st := core.State{"customers": {Cursor: "2024-06-01T00:00:00Z"}}

		st = Advance(st, "customers", "2024-07-01T00:00:00Z")
		assert.Equal(t, "2024-07-01T00:00:00Z", st["customers"].Cursor)

		st = Advance(st, "customers", "2024-05-01T00:00:00Z")
		assert.Equal(t, "2024-07-01T00:00:00Z", st["customers"].Cursor)
	})

	t.Run("empty cursor is a no-op", func(t *testing.T) {
		orig := core.State{"customers": {Cursor: "2024-06-01T00:00:00Z"}}
		st := Advance(orig, "customers", "")
		assert.Equal(t, orig, st)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		orig := core.State{"customers": {Cursor: "2024-06-01T00:00:00Z"}}
		_ = Advance(orig, "customers", "2024-08-01T00:00:00Z")
		assert.Equal(t, "2024-06-01T00:00:00Z", orig["customers"].Cursor)
	})
}
