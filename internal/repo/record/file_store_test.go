package record_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/saba-backend/internal/repo/record"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newItemStore(t *testing.T) (*record.FileStore[[]item], string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := record.NewFileStore(record.FileStoreConfig{Basedir: dir}, "items.json", record.JSONCodec[[]item]{}, []item{})

	return store, dir
}

func TestFileStore_EnsureCreatesEmptyCollection(t *testing.T) {
	t.Parallel()

	store, dir := newItemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ensure(ctx))
	require.NoError(t, store.Ensure(ctx), "ensure must be idempotent")

	data, err := os.ReadFile(filepath.Join(dir, "items.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestFileStore_ReadAllCreatesMissingDocument(t *testing.T) {
	t.Parallel()

	store, _ := newItemStore(t)

	items, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestFileStore_WriteAllThenReadAll(t *testing.T) {
	t.Parallel()

	store, _ := newItemStore(t)
	ctx := context.Background()

	want := []item{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}}
	require.NoError(t, store.WriteAll(ctx, want))

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {", "documents are written indented")
}

func TestFileStore_ReadAllKeepsExistingDocument(t *testing.T) {
	t.Parallel()

	store, _ := newItemStore(t)
	ctx := context.Background()

	require.NoError(t, store.WriteAll(ctx, []item{{ID: 1, Name: "one"}}))

	before, err := os.Stat(store.Path())
	require.NoError(t, err)

	_, err = store.ReadAll(ctx)
	require.NoError(t, err)

	after, err := os.Stat(store.Path())
	require.NoError(t, err)

	assert.True(t, os.SameFile(before, after))
}

func TestFileStore_WriteAllLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	store, dir := newItemStore(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, store.WriteAll(ctx, []item{{ID: i}}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	assert.ElementsMatch(t, []string{"items.json", "items.json.lock"}, names)
}

func TestFileStore_CorruptedDocument(t *testing.T) {
	t.Parallel()

	store, dir := newItemStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.ReadAll(ctx)
	require.ErrorIs(t, err, record.ErrCorrupted)

	err = store.Update(ctx, func(*[]item) error { return nil })
	require.ErrorIs(t, err, record.ErrCorrupted)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data), "corruption is never repaired")
}

func TestFileStore_UpdateMutatorErrorWritesNothing(t *testing.T) {
	t.Parallel()

	store, _ := newItemStore(t)
	ctx := context.Background()

	require.NoError(t, store.WriteAll(ctx, []item{{ID: 1}}))

	errBoom := errors.New("boom")
	err := store.Update(ctx, func(items *[]item) error {
		*items = append(*items, item{ID: 2})

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 1}}, got)
}

func TestFileStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	t.Parallel()

	store, _ := newItemStore(t)
	ctx := context.Background()

	const writers = 32

	var wg sync.WaitGroup

	for i := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := store.Update(ctx, func(items *[]item) error {
				*items = append(*items, item{ID: i, Name: fmt.Sprintf("item-%d", i)})

				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, writers, "no update may be lost")
}

func TestFileStore_TextDocument(t *testing.T) {
	t.Parallel()

	store := record.NewFileStore(record.FileStoreConfig{Basedir: t.TempDir()}, "note.txt", record.TextCodec{}, "default")
	ctx := context.Background()

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", got)

	require.NoError(t, store.WriteAll(ctx, "line one\nline two"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(data))
}
