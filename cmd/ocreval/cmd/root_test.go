package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/MeKo-Tech/ocreval/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh root command and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// corpus writes report.pdf with two pages and a matching transcript.
func corpus(t *testing.T, transcript string) (docDir, gtDir string) {
	t.Helper()
	docDir = t.TempDir()
	gtDir = t.TempDir()
	testutil.WritePDF(t, docDir, "report.pdf",
		testutil.TextPage("Quarterly results improved"),
		testutil.TextPage("Revenue grew in every region"))
	testutil.WriteFile(t, gtDir, "report.txt", []byte(transcript))
	return docDir, gtDir
}

func decodeReport(t *testing.T, data string) report.Report {
	t.Helper()
	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(data), &rep))
	return rep
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "ocreval", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"evaluate", "compare", "overlay", "config"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCommandHelpAndVersion(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "evaluate")

	out, _, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:")
}

func TestEvaluateCommand(t *testing.T) {
	docDir, gtDir := corpus(t, "Quarterly results improved\fRevenue grew in every region")

	out, _, err := execute(t, "evaluate", docDir, "--ground-truth", gtDir, "--engine", "native", "--format", "json")
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.Equal(t, score.ModeGroundTruth, rep.Mode)
	require.Len(t, rep.Documents, 1)
	res := rep.Documents[0].Result
	assert.Equal(t, "report", res.DocumentID)
	require.True(t, res.Coverage.Char.Defined)
	assert.InDelta(t, 1.0, res.Coverage.Char.Value, 1e-9)
	assert.Len(t, res.Pages, 2)
}

func TestEvaluateCommand_ReportFileAndMetrics(t *testing.T) {
	docDir, gtDir := corpus(t, "Quarterly results improved\fRevenue grew in every region")
	outDir := t.TempDir()
	reportPath := filepath.Join(outDir, "report.yaml")
	metricsPath := filepath.Join(outDir, "ocreval.prom")

	out, stderr, err := execute(t, "evaluate", filepath.Join(docDir, "report.pdf"),
		"-g", gtDir, "--engine", "native", "-o", reportPath, "--metrics-file", metricsPath)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "Report written to")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mode: ground_truth", "format follows the file extension")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "ocreval_documents_total")
}

func TestEvaluateCommand_MinCoverage(t *testing.T) {
	docDir, gtDir := corpus(t, "Quarterly results improved\fRevenue grew in every region\nand margins widened considerably this year")

	_, _, err := execute(t, "evaluate", docDir, "-g", gtDir, "--engine", "native", "--min-coverage", "0.95")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBelowThreshold)
	assert.Contains(t, err.Error(), "report")

	_, _, err = execute(t, "evaluate", docDir, "-g", gtDir, "--engine", "native", "--min-coverage", "0.1")
	assert.NoError(t, err)
}

func TestEvaluateCommand_MissingGroundTruth(t *testing.T) {
	docDir, _ := corpus(t, "unused")
	emptyGT := t.TempDir()

	_, _, err := execute(t, "evaluate", docDir, "-g", emptyGT, "--engine", "native", "--continue-on-error=false")
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid)

	out, _, err := execute(t, "evaluate", docDir, "-g", emptyGT, "--engine", "native", "-f", "json")
	require.NoError(t, err)
	rep := decodeReport(t, out)
	require.Len(t, rep.Documents, 1)
	res := rep.Documents[0].Result
	assert.True(t, res.HasFailure(document.KindAlignmentAmbiguity))
	assert.False(t, res.Coverage.Char.Defined)
}

func TestEvaluateCommand_InvalidFlags(t *testing.T) {
	docDir, gtDir := corpus(t, "Quarterly results improved")

	_, _, err := execute(t, "evaluate", docDir, "-g", gtDir, "--engine", "nonexistent")
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid)

	_, _, err = execute(t, "evaluate", docDir, "-g", gtDir, "--format", "xml")
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid)

	_, _, err = execute(t, "evaluate")
	assert.Error(t, err)
}

func TestCompareCommand(t *testing.T) {
	docDir, _ := corpus(t, "unused")

	out, _, err := execute(t, "compare", docDir, "--engine", "native", "--against", "native", "-f", "json")
	require.NoError(t, err)

	rep := decodeReport(t, out)
	assert.Equal(t, score.ModeEngines, rep.Mode)
	require.Len(t, rep.Documents, 1)
	res := rep.Documents[0].Result
	require.NotNil(t, res.Agreement)
	assert.InDelta(t, 1.0, res.Agreement.Char.Value, 1e-9)
}

func TestCompareCommand_Configurations(t *testing.T) {
	docDir, _ := corpus(t, "unused")

	// changing only the resolution of a text engine is a configuration comparison
	_, _, err := execute(t, "compare", docDir, "--engine", "native", "--dpi", "150", "--against-dpi", "300")
	require.NoError(t, err)

	_, _, err = execute(t, "compare", docDir, "--engine", "native", "--against-colorspace", "cmyk")
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid)
}

func TestOverlayCommand(t *testing.T) {
	docDir, _ := corpus(t, "unused")
	outDir := t.TempDir()

	out, _, err := execute(t, "overlay", filepath.Join(docDir, "report.pdf"), "--engine", "native", "--out", outDir, "--pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "report_page_001.png")
	assert.True(t, testutil.FileExists(filepath.Join(outDir, "report", "report_page_002.png")))
	assert.True(t, testutil.FileExists(filepath.Join(outDir, "report.pdf")))
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocreval.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.True(t, testutil.FileExists(path))

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)

	out, _, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "evaluation:")
	assert.Contains(t, out, "engine: native")

	out, _, err = execute(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, ".")
}

func TestCheckMinCoverage(t *testing.T) {
	rep := &report.Report{Aggregate: score.Aggregate{CharCoverage: score.Distribution{Count: 2, Min: 0.4, MinID: "a"}}}
	assert.NoError(t, checkMinCoverage(rep, 0))
	assert.NoError(t, checkMinCoverage(rep, 0.4))
	assert.ErrorIs(t, checkMinCoverage(rep, 0.5), errBelowThreshold)

	undefined := &report.Report{Aggregate: score.Aggregate{CharCoverage: score.Distribution{Undefined: 3}}}
	err := checkMinCoverage(undefined, 0.9)
	require.ErrorIs(t, err, errBelowThreshold)
	assert.Contains(t, err.Error(), "3 undefined")
	assert.NoError(t, checkMinCoverage(undefined, 0))
}

func TestSweepCommand(t *testing.T) {
	docDir, gtDir := corpus(t, "Quarterly results improved\fRevenue grew in every region")
	reportsDir := t.TempDir()

	out, _, err := execute(t, "sweep", docDir, "-g", gtDir, "--engines", "native", "--dpis", "150,300",
		"--reports-dir", reportsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Sweep Results:")
	assert.Contains(t, out, "native/gray@150: min 100.00%")
	assert.Contains(t, out, "native/gray@300: min 100.00%")
	assert.True(t, testutil.FileExists(filepath.Join(reportsDir, "native_gray_300.json")))

	out, _, err = execute(t, "sweep", docDir, "-g", gtDir, "--engines", "native", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rank,engine,colorspace,dpi"))

	_, _, err = execute(t, "sweep", docDir, "-g", gtDir, "--colorspaces", "cmyk")
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid)

	_, _, err = execute(t, "sweep", docDir, "-g", gtDir, "--format", "yaml")
	assert.ErrorIs(t, err, document.ErrConfigurationInvalid)
}
