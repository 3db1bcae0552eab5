// Package normalize converts input documents into a canonical page
// representation for one run configuration: page geometry in points and,
// when the engine needs pixels, a raster at the requested colorspace and DPI.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

// Kind is the input document type.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// PointsPerInch is the PDF user-space unit density.
const PointsPerInch = 72.0

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// KindOf returns the document kind for path based on its extension.
func KindOf(path string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return KindPDF, true
	}
	if imageExtensions[ext] {
		return KindImage, true
	}
	return "", false
}

// Supported reports whether path has a supported input extension.
func Supported(path string) bool {
	_, ok := KindOf(path)
	return ok
}

// Page is one normalized page. Failure is set when the page could not be
// rasterized; the page is kept so downstream stages see it.
type Page struct {
	Index   int
	Width   float64
	Height  float64
	Image   image.Image
	Failure error
}

// Failed reports whether the page carries a normalization failure.
func (p Page) Failed() bool { return p.Failure != nil }

// Document is the normalized form of one input under one run configuration.
type Document struct {
	ID     string
	Source string
	Kind   Kind
	Config document.RunConfig
	Pages  []Page
}

// Options control normalization.
type Options struct {
	// SourceDPI is the assumed resolution of image inputs.
	SourceDPI int
	// MaxPixels bounds the raster size of a single page; 0 disables the guard.
	MaxPixels int
	// Pages restricts PDF inputs to a page range like "1-3,5"; empty means all.
	Pages string
	// PageImages selects how PDF pages are rasterized.
	PageImages PageImageStrategy
}

// PageImageStrategy selects the raster source of PDF pages.
type PageImageStrategy string

const (
	// PageImagesAuto renders pages when a renderer is built in and falls back
	// to the embedded page images.
	PageImagesAuto PageImageStrategy = "auto"
	// PageImagesRender requires rendering; without a renderer the document fails.
	PageImagesRender PageImageStrategy = "render"
	// PageImagesEmbedded only resamples the largest embedded image of each page.
	PageImagesEmbedded PageImageStrategy = "embedded"
)

// ParsePageImageStrategy validates a strategy name; "" selects PageImagesAuto.
func ParsePageImageStrategy(s string) (PageImageStrategy, error) {
	switch PageImageStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PageImagesAuto:
		return PageImagesAuto, nil
	case PageImagesRender:
		return PageImagesRender, nil
	case PageImagesEmbedded:
		return PageImagesEmbedded, nil
	default:
		return "", fmt.Errorf("unknown page image strategy %q (want auto, render or embedded)", s)
	}
}

// DefaultOptions returns the default normalization options.
func DefaultOptions() Options {
	return Options{SourceDPI: 300, MaxPixels: 100_000_000, PageImages: PageImagesAuto}
}

// Normalizer converts documents for a run configuration.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a normalizer. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Normalizer {
	if opts.SourceDPI <= 0 {
		opts.SourceDPI = DefaultOptions().SourceDPI
	}
	if opts.PageImages == "" {
		opts.PageImages = PageImagesAuto
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{opts: opts, logger: logger}
}

// Normalize reads the document at path. Rasterization is skipped when
// rasterize is false; pages then carry geometry only. Errors that prevent
// any page from being produced are returned as NormalizationFailure.
func (n *Normalizer) Normalize(ctx context.Context, path string, cfg document.RunConfig, rasterize bool) (*Document, error) {
	id := DocumentID(path)
	fail := func(err error) (*Document, error) {
		return nil, document.NewFailure(document.KindNormalization, id, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, ok := KindOf(path)
	if !ok {
		return fail(fmt.Errorf("unsupported input format %q", filepath.Ext(path)))
	}
	if rasterize {
		if _, err := document.ParseColorspace(string(cfg.Colorspace)); err != nil {
			return fail(err)
		}
		if cfg.DPI <= 0 {
			return fail(fmt.Errorf("invalid dpi %d", cfg.DPI))
		}
	}
	if st, err := os.Stat(path); err != nil {
		return fail(err)
	} else if st.IsDir() {
		return fail(errors.New("input is a directory"))
	}

	doc := &Document{ID: id, Source: path, Kind: kind, Config: cfg}
	var err error
	switch kind {
	case KindPDF:
		doc.Pages, err = n.pdfPages(ctx, path, cfg, rasterize)
	case KindImage:
		doc.Pages, err = n.imagePages(path, cfg, rasterize)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return fail(err)
	}
	if len(doc.Pages) == 0 {
		return fail(errors.New("document has no pages"))
	}

	failed := 0
	for _, p := range doc.Pages {
		if p.Failed() {
			failed++
			n.logger.Warn("page normalization failed",
				"document", id, "page", p.Index+1, "config", cfg.String(), "error", p.Failure)
		}
	}
	if failed == len(doc.Pages) {
		return fail(fmt.Errorf("no page could be rasterized: %w", doc.Pages[0].Failure))
	}
	n.logger.Debug("document normalized",
		"document", id, "kind", kind, "pages", len(doc.Pages), "config", cfg.String(), "rasterized", rasterize)
	return doc, nil
}

// DocumentID derives a document id from a file path.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
