package extract

import (
	"errors"
	"log/slog"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
)

// ErrNoTesseract is reported for every page when the binary was built
// without the tesseract build tag.
var ErrNoTesseract = errors.New("tesseract support not compiled in (build with -tags tesseract)")

// TesseractEngine runs Tesseract on normalized page rasters and reads its
// hOCR output into regions.
type TesseractEngine struct {
	opts   TesseractOptions
	logger *slog.Logger
}

// NewTesseractEngine creates a tesseract engine.
func NewTesseractEngine(opts TesseractOptions, logger *slog.Logger) *TesseractEngine {
	def := DefaultTesseractOptions()
	if len(opts.Languages) == 0 {
		opts.Languages = def.Languages
	}
	if opts.Level == "" {
		opts.Level = def.Level
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{opts: opts, logger: logger}
}

func (e *TesseractEngine) ID() document.EngineID { return document.EngineTesseract }

func (e *TesseractEngine) Capabilities() Capabilities {
	return Capabilities{
		NeedsRaster: true,
		Inputs:      []normalize.Kind{normalize.KindPDF, normalize.KindImage},
		Colorspaces: []document.Colorspace{document.ColorspaceGray, document.ColorspaceRGB},
		MinDPI:      70,
		MaxDPI:      1200,
	}
}
