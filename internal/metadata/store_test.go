package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	boltStore, err := OpenBoltStore(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = boltStore.Close()
	})

	return map[string]Store{
		"file": NewFileStore(filepath.Join(t.TempDir(), "metadata")),
		"bolt": boltStore,
	}
}

func TestStore_UpdateMetadata(t *testing.T) {
	tests := []struct {
		name    string
		updates []Metadata
		want    Metadata
	}{
		{
			name: "nothing stored",
			want: Metadata{},
		},
		{
			name: "shallow merge keeps absent fields",
			updates: []Metadata{
				{Title: Ptr("A")},
				{Summary: Ptr("B")},
			},
			want: Metadata{Title: Ptr("A"), Summary: Ptr("B")},
		},
		{
			name: "later value wins",
			updates: []Metadata{
				{Title: Ptr("A"), Tags: []string{"x"}},
				{Title: Ptr("C")},
			},
			want: Metadata{Title: Ptr("C"), Tags: []string{"x"}},
		},
		{
			name: "tags are replaced as a whole",
			updates: []Metadata{
				{Tags: []string{"x", "y"}},
				{Tags: []string{"z"}},
			},
			want: Metadata{Tags: []string{"z"}},
		},
	}

	for _, tt := range tests {
		for storeName, store := range newStores(t) {
			t.Run(tt.name+"/"+storeName, func(t *testing.T) {
				ctx := context.Background()
				for _, update := range tt.updates {
					require.NoError(t, store.UpdateMetadata(ctx, "t1", update))
				}

				got, err := store.GetMetadata(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)

				other, err := store.GetMetadata(ctx, "t2")
				require.NoError(t, err)
				assert.Equal(t, Metadata{}, other)
			})
		}
	}
}

func TestStore_DeleteMetadata(t *testing.T) {
	for storeName, store := range newStores(t) {
		t.Run(storeName, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.UpdateMetadata(ctx, "t1", Metadata{Title: Ptr("A")}))

			require.NoError(t, store.DeleteMetadata(ctx, "t1"))
			got, err := store.GetMetadata(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, Metadata{}, got)

			// Deleting a missing record is not an error.
			assert.NoError(t, store.DeleteMetadata(ctx, "t1"))
		})
	}
}

func TestStore_InvalidID(t *testing.T) {
	for storeName, store := range newStores(t) {
		t.Run(storeName, func(t *testing.T) {
			err := store.UpdateMetadata(context.Background(), "../escape", Metadata{Title: Ptr("A")})

			var opErr *OperationFailedError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, "update", opErr.Op)
			assert.Equal(t, "../escape", opErr.ID)
		})
	}
}

func TestFileStore_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t1.json"), []byte("{not json"), 0o644))

	store := NewFileStore(dir)
	_, err := store.GetMetadata(context.Background(), "t1")

	var opErr *OperationFailedError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "get", opErr.Op)
	assert.Contains(t, err.Error(), "json.Unmarshal")
}

func TestFileStore_RecordFormat(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.UpdateMetadata(context.Background(), "t1", Metadata{
		Title: Ptr("Lecture"),
		Tags:  []string{"ml"},
	}))

	contents, err := os.ReadFile(filepath.Join(dir, "t1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Lecture","tags":["ml"]}`, string(contents))
}

func TestFileStore_WriteReplacesRecordAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, store.UpdateMetadata(ctx, "t1", Metadata{Title: Ptr("First")}))
	require.NoError(t, store.UpdateMetadata(ctx, "t1", Metadata{Summary: Ptr("Second")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"t1.json"}, names)

	got, err := store.GetMetadata(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, Metadata{Title: Ptr("First"), Summary: Ptr("Second")}, got)
}

func TestFileStore_WriteFailureLeavesNoTemporaryFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	// A non-empty directory at the record path makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "t1.json", "child"), 0o755))

	err := store.write("t1", Metadata{Title: Ptr("Lecture")})
	assert.ErrorContains(t, err, "os.Rename")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1.json", entries[0].Name())
}
