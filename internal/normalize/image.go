package normalize

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrPixelBudget is returned when a page raster would exceed Options.MaxPixels.
var ErrPixelBudget = errors.New("page raster exceeds pixel budget")

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Reading user-provided input file is expected
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// imagePages treats a single image as one page scanned at SourceDPI.
func (n *Normalizer) imagePages(path string, cfg document.RunConfig, rasterize bool) ([]Page, error) {
	img, err := loadImageFile(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	scale := PointsPerInch / float64(n.opts.SourceDPI)
	page := Page{
		Index:  0,
		Width:  float64(b.Dx()) * scale,
		Height: float64(b.Dy()) * scale,
	}
	if rasterize {
		page.Image, page.Failure = n.render(img, page.Width, page.Height, cfg)
	}
	return []Page{page}, nil
}

// render resamples src to the page size at cfg.DPI and converts it to cfg.Colorspace.
func (n *Normalizer) render(src image.Image, widthPt, heightPt float64, cfg document.RunConfig) (image.Image, error) {
	w, h, err := n.rasterSize(widthPt, heightPt, cfg.DPI)
	if err != nil {
		return nil, err
	}

	var out image.Image = src
	if b := src.Bounds(); b.Dx() != w || b.Dy() != h {
		out = imaging.Resize(src, w, h, imaging.Lanczos)
	}
	return convertColorspace(out, cfg.Colorspace)
}

// rasterSize returns the pixel size of a page at dpi, checked against MaxPixels.
func (n *Normalizer) rasterSize(widthPt, heightPt float64, dpi int) (int, int, error) {
	w := int(math.Round(widthPt / PointsPerInch * float64(dpi)))
	h := int(math.Round(heightPt / PointsPerInch * float64(dpi)))
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid raster size %dx%d", w, h)
	}
	if n.opts.MaxPixels > 0 && w*h > n.opts.MaxPixels {
		return 0, 0, fmt.Errorf("%w: %dx%d > %d", ErrPixelBudget, w, h, n.opts.MaxPixels)
	}
	return w, h, nil
}

// convertColorspace returns an *image.Gray for gray and an *image.NRGBA for rgb.
func convertColorspace(img image.Image, cs document.Colorspace) (image.Image, error) {
	switch cs {
	case document.ColorspaceGray:
		if g, ok := img.(*image.Gray); ok {
			return g, nil
		}
		b := img.Bounds()
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
		return gray, nil
	case document.ColorspaceRGB:
		return imaging.Clone(img), nil
	default:
		return nil, fmt.Errorf("unsupported colorspace %q", cs)
	}
}
