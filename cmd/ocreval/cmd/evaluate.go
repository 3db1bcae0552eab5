package cmd

import (
	"log/slog"

	"github.com/MeKo-Tech/ocreval/internal/batch"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/spf13/cobra"
)

func newEvaluateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [documents or directories...]",
		Short: "Score an extraction run against ground-truth transcripts",
		Long: `Score an extraction run against ground-truth transcripts.

Each document is paired with the transcript of the same base name in
--ground-truth (or next to the document). Transcripts may be plain text
(form feeds separate pages), Markdown, HTML or DOCX.

Examples:
  ocreval evaluate scans/ --ground-truth transcripts/
  ocreval evaluate report.pdf --engine tesseract --colorspace rgb --dpi 400
  ocreval evaluate scans/ -r --baseline native --format json -o report.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEvaluate(cmd, args)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringP("ground-truth", "g", "", "directory of ground-truth transcripts")
	cmd.Flags().String("baseline", "", "lossless engine used to attribute normalization loss (e.g. native)")
	cmd.Flags().Bool("continue-on-error", true, "evaluate documents without a transcript instead of aborting")
	return cmd
}

func (a *app) runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := *a.cfg
	f := cmd.Flags()
	if f.Changed("ground-truth") {
		cfg.Batch.GroundTruthDir, _ = f.GetString("ground-truth")
	}
	if f.Changed("baseline") {
		cfg.Evaluation.Baseline.Engine, _ = f.GetString("baseline")
	}
	if f.Changed("continue-on-error") {
		cfg.Batch.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return err
	}

	pairing, err := batch.Inputs(args, cfg.ToBatchConfig(), true)
	if err != nil {
		return err
	}
	for _, doc := range pairing.Missing {
		slog.Warn("no ground-truth transcript found", "document", doc)
	}

	_, err = runJob(cmd, &cfg, eval.Job{
		Mode:     score.ModeGroundTruth,
		Inputs:   pairing.Inputs,
		Primary:  cfg.Primary(),
		Baseline: cfg.Baseline(),
	})
	return err
}
