package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"codeberg.org/go-pdf/fpdf"
	"github.com/MeKo-Tech/ocreval/internal/document"
)

// Page is a rendered overlay for one document page.
type Page struct {
	Index int
	Image *image.RGBA
	// Scale is pixels per point of the rendered page.
	Scale float64
}

// ImageSource returns the raster of a page, or nil to render on white.
type ImageSource func(index int) image.Image

// RenderDocument renders every page of doc. raw, when set, is the unlabeled
// run whose regions are checked for a labeled counterpart page by page.
func RenderDocument(doc, raw *document.Document, images ImageSource, opts Options) []Page {
	opts = opts.withDefaults()
	rawByIndex := map[int]*document.Page{}
	if raw != nil {
		for i := range raw.Pages {
			rawByIndex[raw.Pages[i].Index] = &raw.Pages[i]
		}
	}
	out := make([]Page, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		var img image.Image
		if images != nil {
			img = images(p.Index)
		}
		rendered := RenderPage(img, p, rawByIndex[p.Index], opts)
		scale := opts.Scale
		if p.Width > 0 {
			scale = float64(rendered.Bounds().Dx()) / p.Width
		}
		out = append(out, Page{Index: p.Index, Image: rendered, Scale: scale})
	}
	return out
}

// PNGName returns the file name of the overlay for page index of document id.
func PNGName(id string, index int) string {
	return fmt.Sprintf("%s_page_%03d.png", id, index+1)
}

// WritePNGs writes one PNG per page into dir and returns the paths.
func WritePNGs(dir, id string, pages []Page) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create overlay directory: %w", err)
	}
	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		path := filepath.Join(dir, PNGName(id, p.Index))
		if err := writePNG(path, p.Image); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: output path chosen by the caller
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// WritePDF writes the pages as a paginated PDF, one overlay image per page,
// each page sized to the original page plus legend.
func WritePDF(path string, pages []Page) error {
	if len(pages) == 0 {
		return errors.New("no overlay pages to write")
	}
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	for i, p := range pages {
		scale := p.Scale
		if scale <= 0 {
			scale = 1
		}
		b := p.Image.Bounds()
		w, h := float64(b.Dx())/scale, float64(b.Dy())/scale
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Image); err != nil {
			return fmt.Errorf("failed to encode page %d: %w", p.Index+1, err)
		}
		name := fmt.Sprintf("overlay%d", i+1)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build overlay PDF: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write overlay PDF: %w", err)
	}
	return nil
}
