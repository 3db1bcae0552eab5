package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/ocreval/internal/batch"
	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/MeKo-Tech/ocreval/internal/sweep"
	"github.com/spf13/cobra"
)

func newSweepCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [documents or directories...]",
		Short: "Rank engine, colorspace and resolution combinations against ground truth",
		Long: `Evaluate the same documents under every combination of the given engines,
colorspaces and resolutions, then rank the combinations by their lowest
document coverage. Time and memory are reported per combination.

Examples:
  ocreval sweep scans/ -g transcripts/ --engines tesseract --dpis 150,300,600
  ocreval sweep scans/ -g transcripts/ --engines native,tesseract --colorspaces gray,rgb --format csv -o sweep.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSweep(cmd, args)
		},
	}
	f := cmd.Flags()
	f.StringSlice("engines", nil, "engines to sweep (default: configured engine)")
	f.StringSlice("colorspaces", nil, "colorspaces to sweep (default: configured colorspace)")
	f.IntSlice("dpis", nil, "resolutions to sweep (default: configured resolution)")
	f.StringP("ground-truth", "g", "", "directory of ground-truth transcripts")
	f.IntP("workers", "w", 0, "documents processed concurrently per configuration")
	f.BoolP("recursive", "r", false, "search directories recursively")
	f.StringP("format", "f", "text", "summary format (text, csv)")
	f.StringP("output", "o", "", "summary file (default stdout)")
	f.String("reports-dir", "", "also write the full JSON report of every configuration to this directory")
	return cmd
}

func (a *app) runSweep(cmd *cobra.Command, args []string) error {
	cfg := *a.cfg
	f := cmd.Flags()
	if f.Changed("ground-truth") {
		cfg.Batch.GroundTruthDir, _ = f.GetString("ground-truth")
	}
	if f.Changed("workers") {
		cfg.Batch.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("recursive") {
		cfg.Batch.Recursive, _ = f.GetBool("recursive")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, _ := f.GetString("format")
	if format != "text" && format != "csv" {
		return document.ConfigurationInvalid("unsupported sweep format %q", format)
	}

	configs, err := sweepConfigurations(cmd, cfg.Primary())
	if err != nil {
		return err
	}
	pairing, err := batch.Inputs(args, cfg.ToBatchConfig(), true)
	if err != nil {
		return err
	}

	logger := slog.Default()
	opts := cfg.ToEvalOptions()
	opts.Progress = eval.NewLogProgressCallback(logger, slog.LevelDebug, 10)
	runner := eval.NewRunner(extract.DefaultRegistry(cfg.ToExtractConfig(), logger), opts, logger)
	s := sweep.New(runner, configs, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	results, runErr := s.Run(ctx, pairing.Inputs)
	if results == nil {
		return runErr
	}

	if dir, _ := f.GetString("reports-dir"); dir != "" {
		for _, r := range results {
			if r.Report == nil {
				continue
			}
			path := filepath.Join(dir, configPathReplacer.Replace(r.Config.String())+".json")
			if err := report.WriteFile(path, r.Report, report.FormatJSON); err != nil {
				return err
			}
		}
	}

	write := sweep.WriteText
	if format == "csv" {
		write = sweep.WriteCSV
	}
	out := cmd.OutOrStdout()
	if path, _ := f.GetString("output"); path != "" {
		file, err := os.Create(path) //nolint:gosec // G304: user-specified output file
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}
	if err := write(out, results); err != nil {
		return err
	}
	return runErr
}

var configPathReplacer = strings.NewReplacer("/", "_", "@", "_")

// sweepConfigurations expands the sweep flags; an unset dimension uses primary's value.
func sweepConfigurations(cmd *cobra.Command, primary document.RunConfig) ([]document.RunConfig, error) {
	f := cmd.Flags()
	engines := []document.EngineID{primary.Engine}
	if names, _ := f.GetStringSlice("engines"); len(names) > 0 {
		engines = engines[:0]
		for _, n := range names {
			engines = append(engines, document.EngineID(strings.TrimSpace(n)))
		}
	}
	colorspaces := []document.Colorspace{primary.Colorspace}
	if names, _ := f.GetStringSlice("colorspaces"); len(names) > 0 {
		colorspaces = colorspaces[:0]
		for _, n := range names {
			cs, err := document.ParseColorspace(n)
			if err != nil {
				return nil, document.ConfigurationInvalid("--colorspaces: %w", err)
			}
			colorspaces = append(colorspaces, cs)
		}
	}
	dpis := []int{primary.DPI}
	if values, _ := f.GetIntSlice("dpis"); len(values) > 0 {
		for _, v := range values {
			if v <= 0 {
				return nil, document.ConfigurationInvalid("--dpis: resolution %d must be positive", v)
			}
		}
		dpis = values
	}
	return sweep.Configurations(engines, colorspaces, dpis), nil
}
