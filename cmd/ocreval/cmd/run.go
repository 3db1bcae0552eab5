package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/ocreval/internal/config"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/spf13/cobra"
)

// addRunFlags registers the flags shared by evaluate and compare.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("engine", "", "extraction engine (native, tesseract, hocr, sidecar, documentai)")
	f.String("colorspace", "", "raster colorspace (gray, rgb)")
	f.Int("dpi", 0, "raster resolution")
	f.String("pages", "", "page range for PDF inputs, e.g. 1-3,5")
	f.String("align-mode", "", "token alignment (bag, sequence)")
	f.StringSlice("exclude-labels", nil, "labels dropped from the scored text")

	f.IntP("workers", "w", 0, "documents processed concurrently")
	f.BoolP("recursive", "r", false, "search directories recursively")
	f.StringSlice("include", nil, "glob patterns of documents to include")
	f.StringSlice("exclude", nil, "glob patterns of documents to exclude")

	f.StringP("format", "f", "", "report format (text, json, yaml, csv)")
	f.StringP("output", "o", "", "report file (default stdout)")
	f.String("overlay-dir", "", "write overlay images of the evaluated run to this directory")
	f.Bool("overlay-pdf", false, "also write one overlay PDF per document")
	f.String("metrics-file", "", "write Prometheus metrics in textfile format")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.Float64("min-coverage", 0, "fail when any document's character coverage falls below this value")
}

// applyRunFlags overrides configuration values with the flags the user set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	setString := func(name string, target *string) {
		if f.Changed(name) {
			*target, _ = f.GetString(name)
		}
	}
	setInt := func(name string, target *int) {
		if f.Changed(name) {
			*target, _ = f.GetInt(name)
		}
	}
	setBool := func(name string, target *bool) {
		if f.Changed(name) {
			*target, _ = f.GetBool(name)
		}
	}
	setSlice := func(name string, target *[]string) {
		if f.Changed(name) {
			*target, _ = f.GetStringSlice(name)
		}
	}

	setString("engine", &cfg.Evaluation.Engine)
	setString("colorspace", &cfg.Evaluation.Colorspace)
	setInt("dpi", &cfg.Evaluation.DPI)
	setString("pages", &cfg.Normalize.Pages)
	setString("align-mode", &cfg.Align.Mode)
	setSlice("exclude-labels", &cfg.Score.ExcludeLabels)

	setInt("workers", &cfg.Batch.Workers)
	setBool("recursive", &cfg.Batch.Recursive)
	setSlice("include", &cfg.Batch.Include)
	setSlice("exclude", &cfg.Batch.Exclude)

	setString("format", &cfg.Output.Format)
	setString("output", &cfg.Output.File)
	setString("overlay-dir", &cfg.Output.OverlayDir)
	setBool("overlay-pdf", &cfg.Output.OverlayPDF)
	setString("metrics-file", &cfg.Output.MetricsFile)

	// a report file extension picks the format unless --format was given
	if !f.Changed("format") && cfg.Output.File != "" {
		if ff, ok := report.FormatFromPath(cfg.Output.File); ok {
			cfg.Output.Format = string(ff)
		}
	}
	return cfg.Validate()
}

// runJob executes job, writes the report and metrics, and enforces --min-coverage.
func runJob(cmd *cobra.Command, cfg *config.Config, job eval.Job) (*report.Report, error) {
	logger := slog.Default()
	opts := cfg.ToEvalOptions()
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		opts.Progress = eval.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Evaluating: ")
	} else {
		opts.Progress = eval.NewLogProgressCallback(logger, slog.LevelDebug, 10)
	}
	runner := eval.NewRunner(extract.DefaultRegistry(cfg.ToExtractConfig(), logger), opts, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, runErr := runner.Run(ctx, job)
	if rep == nil {
		return nil, runErr
	}

	format, _ := report.ParseFormat(cfg.Output.Format)
	if cfg.Output.File != "" {
		if err := report.WriteFile(cfg.Output.File, rep, format); err != nil {
			return rep, err
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.Output.File)
	} else if err := report.Write(cmd.OutOrStdout(), rep, format); err != nil {
		return rep, err
	}

	if cfg.Output.MetricsFile != "" {
		if err := runner.Metrics().WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logger.Warn("failed to write metrics file", "path", cfg.Output.MetricsFile, "error", err)
		}
	}
	if runErr != nil {
		return rep, fmt.Errorf("evaluation interrupted: %w", runErr)
	}

	minCoverage, _ := cmd.Flags().GetFloat64("min-coverage")
	return rep, checkMinCoverage(rep, minCoverage)
}

// errBelowThreshold is returned when a document scores below --min-coverage.
var errBelowThreshold = errors.New("coverage below threshold")

// checkMinCoverage fails when the worst document is below minCoverage, or
// when no document has a defined coverage to check.
func checkMinCoverage(rep *report.Report, minCoverage float64) error {
	dist := rep.Aggregate.CharCoverage
	if minCoverage <= 0 {
		return nil
	}
	if dist.Count == 0 {
		return fmt.Errorf("%w: no document has a defined character coverage (%d undefined)",
			errBelowThreshold, dist.Undefined)
	}
	if dist.Min >= minCoverage {
		return nil
	}
	return fmt.Errorf("%w: %s has character coverage %.4f, minimum is %.4f",
		errBelowThreshold, dist.MinID, dist.Min, minCoverage)
}
