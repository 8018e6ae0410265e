package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The data dir resolves once per process, so one test owns the whole
// surface: the env override must be in place before the first call.
func TestDataDirResolvesOnceFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("TERRASTUDIO_DATA_DIR", root)

	dir := DataDir()
	assert.Equal(t, root, dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, filepath.Join(root, "terrastudio.json"), DataFile("terrastudio.json"))

	require.NoError(t, WriteDataFile("projects/atlas.txt", []byte("zoom(4)\n"), 0o644))
	data, err := ReadDataFile("projects/atlas.txt")
	require.NoError(t, err)
	assert.Equal(t, "zoom(4)\n", string(data))

	_, err = ReadDataFile("missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)

	libs := LibrariesDir()
	assert.Equal(t, filepath.Join(root, "libraries"), libs)
	info, err = os.Stat(libs)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	t.Setenv("TERRASTUDIO_DATA_DIR", t.TempDir())
	assert.Equal(t, root, DataDir(), "the resolved dir sticks for the process lifetime")
}
