//go:build !fitz

package normalize

import (
	"context"
	"errors"
	"image"
)

// ErrNoRenderer is returned when page rendering is requested from a build
// without the fitz tag.
var ErrNoRenderer = errors.New("ocreval built without PDF page rendering (use -tags fitz)")

// RendererAvailable reports whether PDF pages can be rendered.
const RendererAvailable = false

func renderPDF(context.Context, string, []int, int) (map[int]image.Image, error) {
	return nil, ErrNoRenderer
}
