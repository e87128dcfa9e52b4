package arena

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/freelist/alloc"
	"github.com/joshuapare/freelist/internal/format"
)

func TestMapFilePersistsImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.img")
	m, err := MapFile(path, 4096)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())

	a := alloc.New(m.Bytes())
	h, err := a.Allocate(64, 8)
	require.NoError(t, err)
	copy(a.Bytes(h), "persisted")
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Sync(), ErrClosed)

	img, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, img, 4096)
	assert.Equal(t, "persisted", string(img[h.Offset():h.Offset()+9]))

	// The tail free node follows the allocation and spans the rest.
	node := format.ReadNode(img, h.Start()+h.Size())
	assert.Equal(t, uint32(format.InvalidOffset), node.Next)
	assert.Equal(t, 4096-h.Size(), node.Size)
}

func TestMapFileTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

	m, err := MapFile(path, 1024)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size())
}

func TestMapFileErrors(t *testing.T) {
	_, err := MapFile(filepath.Join(t.TempDir(), "small.img"), 4)
	require.ErrorIs(t, err, ErrTooSmall)

	_, err = MapFile(filepath.Join(t.TempDir(), "missing", "dir.img"), 64)
	require.Error(t, err)
}

func TestSyncNoopForAnonymous(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	require.NoError(t, a.Sync())
	assert.Empty(t, a.Path())
	require.NoError(t, a.Close())
}
