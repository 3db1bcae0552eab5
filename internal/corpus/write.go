package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/MeKo-Tech/ocreval/internal/extract"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// WritePDF writes dir/<id>.pdf with a text layer and returns its path.
func (d *Document) WritePDF(dir string) (string, error) {
	pdf := newPDF()
	pdf.SetFont("Helvetica", "", FontSize)
	for _, lines := range d.Pages {
		pdf.AddPage()
		for i, l := range lines {
			pdf.Text(LeftMargin, baseline(i), l)
		}
	}
	return d.save(pdf, dir)
}

// WriteScannedPDF writes dir/<id>.pdf with one page image per page and no
// text layer, rendered at dpi and optionally blurred by sigma pixels.
func (d *Document) WriteScannedPDF(dir string, dpi int, sigma float64) (string, error) {
	if dpi <= 0 {
		dpi = 300
	}
	pdf := newPDF()
	for i := range d.Pages {
		img := d.RenderPage(i, dpi)
		if sigma > 0 {
			img = imaging.Blur(img, sigma)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return "", fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page%d", i+1)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.AddPage()
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, PageWidth, PageHeight, false, opts, 0, "")
	}
	return d.save(pdf, dir)
}

func newPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(false)
	pdf.SetAutoPageBreak(false, 0)
	return pdf
}

func (d *Document) save(pdf *fpdf.Fpdf, dir string) (string, error) {
	if err := pdf.Error(); err != nil {
		return "", err
	}
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.ID+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// RenderPage draws page i at 72 DPI with basicfont and scales it to dpi.
func (d *Document) RenderPage(i, dpi int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, int(PageWidth), int(PageHeight)))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{color.Black}, Face: basicfont.Face7x13}
	for l, line := range d.Pages[i] {
		drawer.Dot = fixed.P(int(LeftMargin), int(baseline(l)))
		drawer.DrawString(line)
	}
	if dpi == 72 {
		return img
	}
	scale := float64(dpi) / 72
	return imaging.Resize(img, int(PageWidth*scale), int(PageHeight*scale), imaging.Lanczos)
}

// WriteTranscript writes dir/<id>.txt and returns its path.
func (d *Document) WriteTranscript(dir string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.ID+".txt")
	return path, os.WriteFile(path, []byte(d.Transcript()), 0o600)
}

// SidecarStyle selects the regions of a generated sidecar.
type SidecarStyle struct {
	// Omit lists 1-based pages written without regions.
	Omit []int
	// Block merges each page into a single region instead of one per line.
	Block bool
	// Suffix names the file <id>.<suffix>.json; empty means "regions".
	Suffix string
}

// WriteSidecar writes the JSON region sidecar read by the sidecar engine.
func (d *Document) WriteSidecar(dir string, style SidecarStyle) (string, error) {
	omit := map[int]bool{}
	for _, n := range style.Omit {
		omit[n-1] = true
	}
	file := extract.SidecarFile{Engine: "corpus"}
	for i, lines := range d.Pages {
		page := extract.SidecarPage{Index: i, Width: PageWidth, Height: PageHeight, Regions: []extract.SidecarRegion{}}
		switch {
		case omit[i] || len(lines) == 0:
		case style.Block:
			width := 0
			for _, l := range lines {
				width = max(width, len(l))
			}
			page.Regions = append(page.Regions, extract.SidecarRegion{
				BBox: [4]float64{LeftMargin, LineTop - FontSize, LeftMargin + 0.5*FontSize*float64(width), baseline(len(lines)-1) + 3},
				Text: strings.Join(lines, "\n"),
			})
		default:
			for l, text := range lines {
				page.Regions = append(page.Regions, extract.SidecarRegion{BBox: lineBox(l, text), Text: text})
			}
		}
		file.Pages = append(file.Pages, page)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", err
	}
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	suffix := style.Suffix
	if suffix == "" {
		suffix = "regions"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s.json", d.ID, suffix))
	return path, os.WriteFile(path, data, 0o600)
}

// WriteHOCR writes dir/<id>.hocr with one ocr_line per line in point coordinates.
func (d *Document) WriteHOCR(dir string) (string, error) {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>` + html.EscapeString(d.ID) + `</title></head><body>
`)
	for p, lines := range d.Pages {
		fmt.Fprintf(&b, `<div class="ocr_page" id="page_%d" title="bbox 0 0 %d %d">`+"\n", p+1, int(PageWidth), int(PageHeight))
		for l, text := range lines {
			box := lineBox(l, text)
			fmt.Fprintf(&b, `<span class="ocr_line" title="bbox %d %d %d %d">`, int(box[0]), int(box[1]), int(box[2]), int(box[3]))
			for w, word := range strings.Fields(text) {
				if w > 0 {
					b.WriteString(" ")
				}
				fmt.Fprintf(&b, `<span class="ocrx_word">%s</span>`, html.EscapeString(word))
			}
			b.WriteString("</span>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</body></html>\n")

	if err := ensureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.ID+".hocr")
	return path, os.WriteFile(path, []byte(b.String()), 0o600)
}
