package document

import "strings"

// GroundTruth is a hand-verified reference transcript for one document.
// Pages is empty when the transcript is not page segmented.
type GroundTruth struct {
	DocumentID string   `json:"document_id" yaml:"document_id"`
	Source     string   `json:"source" yaml:"source"`
	Text       string   `json:"text" yaml:"text"`
	Pages      []string `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Segmented reports whether the transcript carries per-page text.
func (g *GroundTruth) Segmented() bool { return len(g.Pages) > 1 }

// Empty reports whether the transcript has no non-whitespace content.
func (g *GroundTruth) Empty() bool { return strings.TrimSpace(g.Text) == "" }
