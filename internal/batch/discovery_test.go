package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// touch creates empty files below dir and returns their paths.
func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		paths = append(paths, testutil.WriteFile(t, dir, n, []byte("x")))
	}
	return paths
}

func TestDiscoverDocuments_EmptyArgs(t *testing.T) {
	files, err := DiscoverDocuments([]string{}, false, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDocuments_Directory(t *testing.T) {
	dir := t.TempDir()
	p := touch(t, dir, "b.pdf", "a.png", "a.txt", "b.regions.json", "c.tiff")

	files, err := DiscoverDocuments([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{p[1], p[0], p[4]}, files, "only supported documents, in lexical order")
}

func TestDiscoverDocuments_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	root := touch(t, dir, "root.pdf")[0]
	nested := touch(t, sub, "nested.pdf")[0]

	files, err := DiscoverDocuments([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root, nested}, files)

	files, err = DiscoverDocuments([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, files)
}

func TestDiscoverDocuments_IncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	p := touch(t, dir, "scan1.pdf", "scan2.pdf", "draft-scan.pdf", "photo.png")

	files, err := DiscoverDocuments([]string{dir}, false, []string{"*.pdf"}, []string{"draft-*"})
	require.NoError(t, err)
	assert.Equal(t, []string{p[0], p[1]}, files)
}

func TestDiscoverDocuments_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	p := touch(t, dir, "one.pdf", "two.jpg", "notes.txt")

	files, err := DiscoverDocuments([]string{p[1], p[0], p[1]}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{p[1], p[0]}, files, "argument order kept, duplicates dropped")

	_, err = DiscoverDocuments([]string{p[2]}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input document")

	files, err = DiscoverDocuments([]string{p[2]}, false, nil, []string{"*.txt"})
	require.NoError(t, err)
	assert.Empty(t, files, "excluded files are skipped before the format check")
}

func TestDiscoverDocuments_NonExistent(t *testing.T) {
	files, err := DiscoverDocuments([]string{"/nonexistent/directory"}, false, nil, nil)
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestMatchesAnyPattern(t *testing.T) {
	patterns := []string{"*.pdf", "*.jpg", "special.*"}

	testCases := []struct {
		filename string
		expected bool
	}{
		{"report.pdf", true},
		{"photo.jpg", true},
		{"special.gif", true},
		{"report.PDF", false}, // case sensitive
		{"image.bmp", false},
		{"/deep/path/report.pdf", true},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, matchesAnyPattern(tc.filename, patterns), "filename=%s", tc.filename)
	}
	assert.False(t, matchesAnyPattern("report.pdf", nil))
}
