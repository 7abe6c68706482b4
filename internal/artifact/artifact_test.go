package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissing(t *testing.T) {
	s := NewFileStore(t.TempDir())
	_, err := s.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "models/m.json", []byte("first")))
	require.NoError(t, s.Put(ctx, "models/m.json", []byte("second")))

	data, err := s.Get(ctx, "models/m.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "models"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreAbsoluteKey(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "m.json")
	s := NewFileStore("/does/not/matter")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, abs, []byte("x")))
	data, err := s.Get(ctx, abs)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
