// Package support holds the godog step definitions of the evaluation suite.
package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/corpus"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/MeKo-Tech/ocreval/internal/score"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastArgs   []string
	LastOutput string
	LastStderr string
	LastError  error

	// Test environment
	TempDir   string
	DocsDir   string
	GTDir     string
	OutputDir string

	// Documents holds the generated documents by id.
	Documents map[string]*corpus.Document

	report *report.Report
}

// NewTestContext creates a context with fresh document, transcript and output directories.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "ocreval-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	ctx := &TestContext{
		TempDir:   tempDir,
		DocsDir:   filepath.Join(tempDir, "docs"),
		GTDir:     filepath.Join(tempDir, "gt"),
		OutputDir: filepath.Join(tempDir, "out"),
		Documents: map[string]*corpus.Document{},
	}
	for _, dir := range []string{ctx.DocsDir, ctx.GTDir, ctx.OutputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return ctx, nil
}

// Cleanup removes the scenario's temporary files.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// expand replaces {docs}, {gt} and {out} with the scenario directories.
func (testCtx *TestContext) expand(s string) string {
	return strings.NewReplacer(
		"{docs}", testCtx.DocsDir,
		"{gt}", testCtx.GTDir,
		"{out}", testCtx.OutputDir,
	).Replace(s)
}

// Report decodes the JSON report printed by the last command.
func (testCtx *TestContext) Report() (*report.Report, error) {
	if testCtx.report != nil {
		return testCtx.report, nil
	}
	if testCtx.LastOutput == "" {
		return nil, errors.New("the last command printed no report")
	}
	var rep report.Report
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &rep); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w\n%s", err, testCtx.LastOutput)
	}
	testCtx.report = &rep
	return testCtx.report, nil
}

// Result returns the comparison result of document id in the last report.
func (testCtx *TestContext) Result(id string) (*score.ComparisonResult, error) {
	rep, err := testCtx.Report()
	if err != nil {
		return nil, err
	}
	for i := range rep.Documents {
		if rep.Documents[i].DocumentID == id {
			return &rep.Documents[i].Result, nil
		}
	}
	return nil, fmt.Errorf("document %q not in report", id)
}
