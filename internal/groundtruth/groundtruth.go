// Package groundtruth loads hand-verified reference transcripts.
//
// Supported formats are plain text, Markdown, HTML and DOCX. Each format has
// its own page separator; a transcript without separators is unsegmented.
package groundtruth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

// PageSeparator separates pages in plain-text transcripts.
const PageSeparator = "\f"

// ErrNotFound is returned by Find when no transcript exists for a document.
var ErrNotFound = errors.New("ground truth not found")

// Extensions lists supported transcript extensions in lookup order.
var Extensions = []string{".txt", ".md", ".markdown", ".html", ".htm", ".docx"}

type loader func(data []byte) ([]string, error)

var loaders = map[string]loader{
	".txt":      loadText,
	".md":       loadMarkdown,
	".markdown": loadMarkdown,
	".html":     loadHTML,
	".htm":      loadHTML,
	".docx":     loadDOCX,
}

// Load reads the transcript at path. The document id is the file basename
// without extension.
func Load(path string) (*document.GroundTruth, error) {
	ext := strings.ToLower(filepath.Ext(path))
	load, ok := loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported transcript format %q", ext)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading user-specified transcript is intended
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	pages, err := load(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s transcript %s: %w", strings.TrimPrefix(ext, "."), path, err)
	}
	return build(DocumentID(path), path, pages), nil
}

// Parse builds a transcript from in-memory data of the given format (extension with dot).
func Parse(id, format string, data []byte) (*document.GroundTruth, error) {
	load, ok := loaders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported transcript format %q", format)
	}
	pages, err := load(data)
	if err != nil {
		return nil, err
	}
	return build(id, "", pages), nil
}

func build(id, source string, pages []string) *document.GroundTruth {
	gt := &document.GroundTruth{
		DocumentID: id,
		Source:     source,
		Text:       strings.Join(pages, PageSeparator),
	}
	if len(pages) > 1 {
		gt.Pages = pages
	}
	return gt
}

// DocumentID derives a document id from a file path.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Find locates the transcript for documentID inside dir.
func Find(dir, documentID string) (string, error) {
	for _, ext := range Extensions {
		p := filepath.Join(dir, documentID+ext)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, documentID, dir)
}

func loadText(data []byte) ([]string, error) {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.TrimPrefix(s, "\uFEFF")
	pages := strings.Split(s, PageSeparator)
	// a trailing separator does not open a new page
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}
