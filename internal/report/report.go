// Package report collects the per-document comparison results of one run and
// writes them as JSON, YAML, CSV or a text summary.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/google/uuid"
)

// DocumentResult is the outcome of one document in a run.
type DocumentResult struct {
	DocumentID  string                 `json:"document_id" yaml:"document_id"`
	Source      string                 `json:"source" yaml:"source"`
	GroundTruth string                 `json:"ground_truth,omitempty" yaml:"ground_truth,omitempty"`
	DurationMS  int64                  `json:"duration_ms" yaml:"duration_ms"`
	Result      score.ComparisonResult `json:"result" yaml:"result"`
}

// Report is the artifact of one evaluation run. Aggregate is computed from
// Documents by Finalize and never updated incrementally.
type Report struct {
	RunID     string              `json:"run_id" yaml:"run_id"`
	Mode      score.Mode          `json:"mode" yaml:"mode"`
	CreatedAt time.Time           `json:"created_at" yaml:"created_at"`
	Primary   document.RunConfig  `json:"primary" yaml:"primary"`
	Secondary *document.RunConfig `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Baseline  *document.RunConfig `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Documents []DocumentResult    `json:"documents" yaml:"documents"`
	Aggregate score.Aggregate     `json:"aggregate" yaml:"aggregate"`
}

// New starts an empty report with a fresh run id.
func New(mode score.Mode, primary document.RunConfig) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
		Primary:   primary,
		Documents: []DocumentResult{},
	}
}

// Results returns the comparison results in document order.
func (r *Report) Results() []score.ComparisonResult {
	out := make([]score.ComparisonResult, len(r.Documents))
	for i, d := range r.Documents {
		out[i] = d.Result
	}
	return out
}

// Finalize recomputes the aggregate from the documents.
func (r *Report) Finalize() {
	r.Aggregate = score.AggregateResults(r.Results())
}

// Reference describes what the primary run was compared with.
func (r *Report) Reference() string {
	switch {
	case r.Mode == score.ModeGroundTruth:
		return score.GroundTruthSource
	case r.Secondary != nil:
		return r.Secondary.String()
	default:
		return ""
	}
}

// Format is an output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat validates a format name; "" selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatJSON, FormatYAML, FormatCSV, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil || filepath.Ext(path) == "" {
		return "", false
	}
	return f, true
}

// Render serializes r in format f.
func Render(r *Report, f Format) (string, error) {
	if r == nil {
		return "", errors.New("nil report")
	}
	switch f {
	case FormatJSON:
		return ToJSON(r)
	case FormatYAML:
		return ToYAML(r)
	case FormatCSV:
		return ToCSV(r)
	case FormatText, "":
		return ToText(r), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", f)
	}
}

// Write renders r to w.
func Write(w io.Writer, r *Report, f Format) error {
	s, err := Render(r, f)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// WriteFile renders r to path, creating parent directories.
func WriteFile(path string, r *Report, f Format) error {
	s, err := Render(r, f)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(s), 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
