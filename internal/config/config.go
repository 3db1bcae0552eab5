package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/align"
	"github.com/MeKo-Tech/ocreval/internal/batch"
	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/eval"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/MeKo-Tech/ocreval/internal/overlay"
	"github.com/MeKo-Tech/ocreval/internal/report"
	"github.com/MeKo-Tech/ocreval/internal/score"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	norm := normalize.DefaultOptions()
	al := align.DefaultOptions()
	sc := score.DefaultOptions()
	eng := extract.DefaultConfig()
	ov := overlay.DefaultOptions()

	return Config{
		LogLevel: "info",
		Verbose:  false,
		Evaluation: EvaluationConfig{
			Engine:     string(document.EngineNative),
			Colorspace: string(document.ColorspaceGray),
			DPI:        300,
			Mode:       string(score.ModeGroundTruth),
		},
		Normalize: NormalizeConfig{
			SourceDPI:         norm.SourceDPI,
			MaxPixels:         norm.MaxPixels,
			PageImageStrategy: string(norm.PageImages),
		},
		Align: AlignConfig{
			Mode:               string(al.Mode),
			CaseFold:           al.CaseFold,
			StripPunctuation:   al.StripPunctuation,
			RejoinHyphenation:  al.RejoinHyphenation,
			ReplaceTypographic: al.ReplaceTypographic,
		},
		Score: ScoreConfig{
			IncludeUnclassified: sc.IncludeUnclassified,
			RegionMatchIoU:      sc.RegionMatchIoU,
		},
		Engines: EnginesConfig{
			Native: NativeConfig{
				RowTolerance: eng.Native.RowTolerance,
				GapFactor:    eng.Native.GapFactor,
			},
			Tesseract: TesseractConfig{
				Languages: eng.Tesseract.Languages,
				PSM:       eng.Tesseract.PSM,
				Level:     string(eng.Tesseract.Level),
			},
			HOCR:       HOCRConfig{Level: string(eng.HOCR.Level)},
			Sidecar:    SidecarConfig{Suffix: eng.Sidecar.Suffix},
			DocumentAI: DocumentAIConfig{Location: eng.DocumentAI.Location},
		},
		Overlay: OverlayConfig{
			Scale:          ov.Scale,
			Thickness:      ov.Thickness,
			Dash:           ov.Dash,
			MatchThreshold: ov.MatchThreshold,
			Legend:         ov.Legend,
		},
		Output: OutputConfig{
			Format: string(report.FormatText),
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
	}
}

// RunConfig returns the run configuration described by s.
func (s RunSpec) RunConfig() document.RunConfig {
	cs, err := document.ParseColorspace(s.Colorspace)
	if err != nil {
		cs = document.Colorspace(s.Colorspace)
	}
	return document.RunConfig{Engine: document.EngineID(s.Engine), Colorspace: cs, DPI: s.DPI}
}

// Primary returns the run under evaluation.
func (c *Config) Primary() document.RunConfig {
	return RunSpec{Engine: c.Evaluation.Engine, Colorspace: c.Evaluation.Colorspace, DPI: c.Evaluation.DPI}.RunConfig()
}

// Baseline returns the configured baseline run or nil.
func (c *Config) Baseline() *document.RunConfig {
	if c.Evaluation.Baseline.Engine == "" {
		return nil
	}
	b := c.Evaluation.Baseline
	if b.Colorspace == "" {
		b.Colorspace = c.Evaluation.Colorspace
	}
	if b.DPI == 0 {
		b.DPI = c.Evaluation.DPI
	}
	rc := b.RunConfig()
	return &rc
}

// Validate checks the configuration. Every error is ConfigurationInvalid.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return document.ConfigurationInvalid("%w", err)
	}
	return nil
}

func (c *Config) validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := score.ParseMode(c.Evaluation.Mode); err != nil {
		return err
	}
	if c.Evaluation.Engine == "" {
		return errors.New("evaluation.engine is required")
	}
	if _, err := document.ParseColorspace(c.Evaluation.Colorspace); err != nil {
		return fmt.Errorf("evaluation.colorspace: %w", err)
	}
	if c.Evaluation.DPI <= 0 {
		return fmt.Errorf("invalid evaluation.dpi: %d (must be positive)", c.Evaluation.DPI)
	}
	if b := c.Evaluation.Baseline; b.Engine != "" && b.Colorspace != "" {
		if _, err := document.ParseColorspace(b.Colorspace); err != nil {
			return fmt.Errorf("evaluation.baseline.colorspace: %w", err)
		}
	}

	if c.Normalize.SourceDPI <= 0 {
		return fmt.Errorf("invalid normalize.source_dpi: %d (must be positive)", c.Normalize.SourceDPI)
	}
	if c.Normalize.MaxPixels < 0 {
		return fmt.Errorf("invalid normalize.max_pixels: %d (must not be negative)", c.Normalize.MaxPixels)
	}
	if _, err := normalize.ParsePageImageStrategy(c.Normalize.PageImageStrategy); err != nil {
		return fmt.Errorf("normalize.page_image_strategy: %w", err)
	}

	if _, err := align.ParseMode(c.Align.Mode); err != nil {
		return fmt.Errorf("align.mode: %w", err)
	}
	if _, err := c.excludeLabels(); err != nil {
		return err
	}
	if err := validateThreshold(c.Score.RegionMatchIoU, "score.region_match_iou"); err != nil {
		return err
	}

	if _, err := extract.ParseLevel(c.Engines.Tesseract.Level); err != nil {
		return fmt.Errorf("engines.tesseract.level: %w", err)
	}
	if _, err := extract.ParseLevel(c.Engines.HOCR.Level); err != nil {
		return fmt.Errorf("engines.hocr.level: %w", err)
	}
	if c.Engines.Native.RowTolerance < 0 || c.Engines.Native.GapFactor < 0 {
		return errors.New("engines.native tolerances must not be negative")
	}

	if c.Overlay.Scale < 0 {
		return fmt.Errorf("invalid overlay.scale: %g (must not be negative)", c.Overlay.Scale)
	}
	if err := validateThreshold(c.Overlay.MatchThreshold, "overlay.match_threshold"); err != nil {
		return err
	}

	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

func (c *Config) excludeLabels() ([]document.Label, error) {
	labels := make([]document.Label, 0, len(c.Score.ExcludeLabels))
	for _, s := range c.Score.ExcludeLabels {
		l, err := document.ParseLabel(s)
		if err != nil {
			return nil, fmt.Errorf("score.exclude_labels: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// ToExtractConfig converts the engine sections to extraction settings.
func (c *Config) ToExtractConfig() extract.Config {
	cfg := extract.DefaultConfig()
	cfg.Native = extract.NativeOptions{
		RowTolerance: c.Engines.Native.RowTolerance,
		GapFactor:    c.Engines.Native.GapFactor,
	}
	tl, _ := extract.ParseLevel(c.Engines.Tesseract.Level)
	cfg.Tesseract = extract.TesseractOptions{
		Languages: c.Engines.Tesseract.Languages,
		PSM:       c.Engines.Tesseract.PSM,
		Variables: c.Engines.Tesseract.Variables,
		Level:     tl,
	}
	hl, _ := extract.ParseLevel(c.Engines.HOCR.Level)
	cfg.HOCR = extract.HOCROptions{Dir: c.Engines.HOCR.Dir, Level: hl}
	cfg.Sidecar = extract.SidecarOptions{Dir: c.Engines.Sidecar.Dir, Suffix: c.Engines.Sidecar.Suffix}
	cfg.DocumentAI = extract.DocumentAIOptions{
		ProjectID:       c.Engines.DocumentAI.ProjectID,
		Location:        c.Engines.DocumentAI.Location,
		ProcessorID:     c.Engines.DocumentAI.ProcessorID,
		CredentialsFile: c.Engines.DocumentAI.CredentialsFile,
		CacheDir:        c.Engines.DocumentAI.CacheDir,
	}
	return cfg
}

// ToScoreOptions converts the align and score sections.
func (c *Config) ToScoreOptions() score.Options {
	mode, _ := align.ParseMode(c.Align.Mode)
	labels, _ := c.excludeLabels()
	return score.Options{
		Align: align.Options{
			Mode:               mode,
			CaseFold:           c.Align.CaseFold,
			StripPunctuation:   c.Align.StripPunctuation,
			RejoinHyphenation:  c.Align.RejoinHyphenation,
			ReplaceTypographic: c.Align.ReplaceTypographic,
		},
		ExcludeLabels:       labels,
		IncludeUnclassified: c.Score.IncludeUnclassified,
		RegionMatchIoU:      c.Score.RegionMatchIoU,
	}
}

// ToOverlayOptions converts the overlay section.
func (c *Config) ToOverlayOptions() overlay.Options {
	return overlay.Options{
		Scale:          c.Overlay.Scale,
		Thickness:      c.Overlay.Thickness,
		Dash:           c.Overlay.Dash,
		MatchThreshold: c.Overlay.MatchThreshold,
		Legend:         c.Overlay.Legend,
	}
}

// ToNormalizeOptions converts the normalize section. It assumes a validated config.
func (c *Config) ToNormalizeOptions() normalize.Options {
	strategy, _ := normalize.ParsePageImageStrategy(c.Normalize.PageImageStrategy)
	return normalize.Options{
		SourceDPI:  c.Normalize.SourceDPI,
		MaxPixels:  c.Normalize.MaxPixels,
		Pages:      c.Normalize.Pages,
		PageImages: strategy,
	}
}

// ToEvalOptions converts the configuration to runner options.
func (c *Config) ToEvalOptions() eval.Options {
	return eval.Options{
		Workers:    c.Batch.Workers,
		Normalize:  c.ToNormalizeOptions(),
		Score:      c.ToScoreOptions(),
		OverlayDir: c.Output.OverlayDir,
		OverlayPDF: c.Output.OverlayPDF,
		Overlay:    c.ToOverlayOptions(),
	}
}

// ToBatchConfig converts the batch section.
func (c *Config) ToBatchConfig() batch.Config {
	return batch.Config{
		Recursive:       c.Batch.Recursive,
		IncludePatterns: c.Batch.Include,
		ExcludePatterns: c.Batch.Exclude,
		GroundTruthDir:  c.Batch.GroundTruthDir,
		ContinueOnError: c.Batch.ContinueOnError,
	}
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
