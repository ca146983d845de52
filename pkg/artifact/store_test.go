package artifact_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/artifact"
)

func stores(t *testing.T) map[string]artifact.Store {
	t.Helper()
	fileStore, err := artifact.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]artifact.Store{
		"memory": artifact.NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ref, err := store.Put(ctx, []byte("hello world"), artifact.PutOptions{ContentType: "text/plain"})
			require.NoError(t, err)
			require.NotEmpty(t, ref.ArtifactID)
			require.Equal(t, int64(len("hello world")), ref.SizeBytes)

			rec, err := store.Get(ctx, ref.ArtifactID)
			require.NoError(t, err)
			require.NotNil(t, rec)
			require.Equal(t, "hello world", string(rec.Bytes))
			require.Equal(t, ref.ContentHash, rec.ContentHash)
			require.Equal(t, "text/plain", rec.ContentType)
		})
	}
}

func TestGet_AbsentReturnsNilNotError(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := store.Get(context.Background(), "does-not-exist")
			require.NoError(t, err)
			require.Nil(t, rec)
		})
	}
}

func TestPut_RejectsOversize(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Put(context.Background(), []byte("0123456789"), artifact.PutOptions{MaxBytes: 4})
			require.ErrorIs(t, err, artifact.ErrTooLarge)
		})
	}
}

func TestPut_IdenticalBytesGetDistinctIDs(t *testing.T) {
	store := artifact.NewMemoryStore()
	ctx := context.Background()
	ref1, err := store.Put(ctx, []byte("same"), artifact.PutOptions{})
	require.NoError(t, err)
	ref2, err := store.Put(ctx, []byte("same"), artifact.PutOptions{})
	require.NoError(t, err)

	require.NotEqual(t, ref1.ArtifactID, ref2.ArtifactID)
	require.Equal(t, ref1.ContentHash, ref2.ContentHash)
}

func TestFileStore_TreeLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := artifact.NewFileStore(dir)
	require.NoError(t, err)

	ref, err := store.Put(context.Background(), []byte("x"), artifact.PutOptions{})
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(dir, "artifacts", "data", ref.ArtifactID+".bin"))
	require.FileExists(t, filepath.Join(dir, "artifacts", "meta", ref.ArtifactID+".json"))
}
