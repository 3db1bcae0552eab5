package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
	assert.True(t, DirExists(filepath.Join(root, "internal")))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := WriteFile(t, dir, "nested/dir/gt.txt", []byte("hello"))
	assert.Equal(t, filepath.Join(dir, "nested", "dir", "gt.txt"), p)
	assert.True(t, FileExists(p))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.False(t, DirExists(p))
}
