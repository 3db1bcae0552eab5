package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair(t *testing.T) {
	dir := t.TempDir()
	gtDir := filepath.Join(dir, "gt")
	require.NoError(t, os.MkdirAll(gtDir, 0o750))

	docs := touch(t, dir, "annual.pdf", "memo.pdf", "scan.png")
	gts := touch(t, gtDir, "annual.md", "memo.txt")
	local := touch(t, dir, "scan.txt")[0]

	p := Pair(docs, gtDir)
	require.Len(t, p.Inputs, 3)
	assert.Equal(t, gts[0], p.Inputs[0].GroundTruthPath)
	assert.Equal(t, gts[1], p.Inputs[1].GroundTruthPath)
	assert.Empty(t, p.Inputs[2].GroundTruthPath, "only the ground-truth directory is searched")
	assert.Equal(t, []string{docs[2]}, p.Missing)

	p = Pair(docs[2:], "")
	assert.Equal(t, local, p.Inputs[0].GroundTruthPath, "empty directory means next to the document")
	assert.Empty(t, p.Missing)
}

func TestInputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "b.pdf", "a.txt")

	_, err := Inputs([]string{dir}, Config{}, true)
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid, "b.pdf has no transcript")

	p, err := Inputs([]string{dir}, Config{ContinueOnError: true}, true)
	require.NoError(t, err)
	require.Len(t, p.Inputs, 2)
	assert.NotEmpty(t, p.Inputs[0].GroundTruthPath)
	assert.Empty(t, p.Inputs[1].GroundTruthPath)
	assert.Len(t, p.Missing, 1)

	p, err = Inputs([]string{dir}, Config{}, false)
	require.NoError(t, err)
	assert.Len(t, p.Inputs, 2)
	assert.Empty(t, p.Missing)

	_, err = Inputs([]string{t.TempDir()}, Config{}, false)
	assert.EqualError(t, err, "no input documents found")
}
