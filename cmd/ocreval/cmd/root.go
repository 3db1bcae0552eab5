// Package cmd implements the ocreval command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/ocreval/internal/config"
	"github.com/MeKo-Tech/ocreval/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by all commands of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree with its own configuration state.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "ocreval",
		Short: "Measure how much text an OCR or extraction run recovers",
		Long: `ocreval scores text extraction runs against ground-truth transcripts or
against each other. Every document is normalized, extracted by the selected
engine, aligned with its reference and reported as coverage, loss and agreement.

Comparison modes:
- engine vs ground truth (evaluate)
- engine vs engine (compare --against)
- configuration vs configuration of one engine (compare --against-dpi/--against-colorspace)

Examples:
  ocreval evaluate scans/ --ground-truth transcripts/ --engine tesseract --dpi 300
  ocreval compare report.pdf --engine native --against tesseract
  ocreval compare scans/ --engine tesseract --dpi 150 --against-dpi 600
  ocreval sweep scans/ --ground-truth transcripts/ --engines tesseract --dpis 150,300,600
  ocreval overlay report.pdf --engine hocr --raw-engine tesseract --out overlays/`,
		Version:           version.String(),
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $XDG_CONFIG_HOME/ocreval, /etc/ocreval)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))

	rootCmd.AddCommand(
		newEvaluateCommand(a),
		newCompareCommand(a),
		newSweepCommand(a),
		newOverlayCommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

// initConfig loads the configuration and installs the default logger.
func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoaderWithViper(a.v).WithEnvFiles(".env")
	cfg, err := loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	setupLogging(cmd.ErrOrStderr(), cfg)
	slog.Debug("configuration loaded", "file", loader.GetConfigFileUsed())
	return nil
}

// setupLogging installs a JSON logger on w at the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
