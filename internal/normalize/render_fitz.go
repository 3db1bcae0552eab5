//go:build fitz

package normalize

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// RendererAvailable reports whether PDF pages can be rendered.
const RendererAvailable = true

// renderPDF rasterizes the given 1-based pages with MuPDF at dpi.
func renderPDF(ctx context.Context, path string, pages []int, dpi int) (map[int]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open with mupdf: %w", err)
	}
	defer func() { _ = doc.Close() }()

	out := make(map[int]image.Image, len(pages))
	for _, num := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if num > doc.NumPage() {
			continue
		}
		img, err := doc.ImageDPI(num-1, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", num, err)
		}
		out[num] = img
	}
	return out, nil
}
