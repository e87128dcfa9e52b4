package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledDiscards(t *testing.T) {
	closeFn, err := Init(Options{})
	require.NoError(t, err)
	require.NoError(t, closeFn())
	assert.False(t, L.Enabled(t.Context(), 12))
}

func TestInitLevelFiltersOutput(t *testing.T) {
	var out bytes.Buffer
	closeFn, err := Init(Options{Level: "warn", Output: &out})
	require.NoError(t, err)
	defer closeFn()

	Info("hidden")
	Warn("shown", "size", 64)
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "msg=shown size=64")
}

func TestInitLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flctl.log")
	closeFn, err := Init(Options{Level: "debug", LogFile: path})
	require.NoError(t, err)

	Debug("alloc", "offset", 16)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"alloc"`)
	assert.Contains(t, string(data), `"offset":16`)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	_, err := Init(Options{Level: "loud"})
	require.ErrorContains(t, err, "unknown log level")
}
