//go:build tesseract

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/otiai10/gosseract/v2"
)

// Extract recognizes each page with a fresh client.
func (e *TesseractEngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	return extractPages(ctx, doc, e.ID(), func(_ context.Context, in normalize.Page) ([]document.TextRegion, error) {
		if in.Image == nil {
			return nil, errors.New("page has no raster")
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, in.Image); err != nil {
			return nil, fmt.Errorf("encode page: %w", err)
		}

		c := gosseract.NewClient()
		defer func() { _ = c.Close() }()
		if err := e.configure(c, doc.Config.DPI); err != nil {
			return nil, err
		}
		if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
			return nil, fmt.Errorf("set image: %w", err)
		}
		out, err := c.HOCRText()
		if err != nil {
			return nil, fmt.Errorf("recognize: %w", err)
		}
		pages, err := parseHOCR([]byte(out), e.opts.Level)
		if err != nil {
			return nil, err
		}
		b := in.Image.Bounds()
		e.logger.Debug("tesseract page recognized", "document", doc.ID, "page", in.Index+1, "config", doc.Config.String())
		return pages[0].toRegions(in, float64(b.Dx()), float64(b.Dy())), nil
	})
}

func (e *TesseractEngine) configure(c *gosseract.Client, dpi int) error {
	if err := c.SetLanguage(e.opts.Languages...); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}
	if e.opts.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.opts.PSM)); err != nil {
			return fmt.Errorf("set psm: %w", err)
		}
	}
	if dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(dpi)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range e.opts.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	return nil
}
