//go:build !tesseract

package extract

import (
	"context"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
)

// Extract marks every page failed with ErrNoTesseract.
func (e *TesseractEngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	return extractPages(ctx, doc, e.ID(), func(context.Context, normalize.Page) ([]document.TextRegion, error) {
		return nil, ErrNoTesseract
	})
}
