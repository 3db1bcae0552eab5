package cmd

import (
	"github.com/MeKo-Tech/ocreval/internal/batch"
	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"github.com/spf13/cobra"
)

func newCompareCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [documents or directories...]",
		Short: "Compare two extraction runs without ground truth",
		Long: `Compare two extraction runs of the same documents. The second run is the
reference: coverage says how much of its text the first run recovered, agreement
is symmetric.

When --against names a different engine the engines are compared. When only
--against-colorspace or --against-dpi differ, two configurations of one engine
are compared.

Examples:
  ocreval compare report.pdf --engine native --against tesseract
  ocreval compare scans/ --engine tesseract --dpi 150 --against-dpi 600
  ocreval compare scans/ --engine tesseract --colorspace gray --against-colorspace rgb`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd, args)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().String("against", "", "engine of the reference run (default: same engine)")
	cmd.Flags().String("against-colorspace", "", "colorspace of the reference run (default: same colorspace)")
	cmd.Flags().Int("against-dpi", 0, "resolution of the reference run (default: same resolution)")
	return cmd
}

func (a *app) runCompare(cmd *cobra.Command, args []string) error {
	cfg := *a.cfg
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return err
	}
	primary := cfg.Primary()
	secondary, err := referenceRun(cmd, primary)
	if err != nil {
		return err
	}

	mode := score.ModeEngines
	if secondary.Engine == primary.Engine && secondary != primary {
		mode = score.ModeConfigurations
	}

	pairing, err := batch.Inputs(args, cfg.ToBatchConfig(), false)
	if err != nil {
		return err
	}

	_, err = runJob(cmd, &cfg, eval.Job{
		Mode:      mode,
		Inputs:    pairing.Inputs,
		Primary:   primary,
		Secondary: &secondary,
	})
	return err
}

// referenceRun derives the reference run from the --against flags; unset
// parts follow primary.
func referenceRun(cmd *cobra.Command, primary document.RunConfig) (document.RunConfig, error) {
	f := cmd.Flags()
	ref := primary
	if engine, _ := f.GetString("against"); engine != "" {
		ref.Engine = document.EngineID(engine)
	}
	if cs, _ := f.GetString("against-colorspace"); cs != "" {
		parsed, err := document.ParseColorspace(cs)
		if err != nil {
			return ref, document.ConfigurationInvalid("--against-colorspace: %w", err)
		}
		ref.Colorspace = parsed
	}
	if dpi, _ := f.GetInt("against-dpi"); dpi > 0 {
		ref.DPI = dpi
	}
	return ref, nil
}
