package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

// PDFLine is a line of text placed on a PDF page. X and Y are in points from
// the top-left corner; Y is the baseline.
type PDFLine struct {
	X, Y float64
	Size float64
	Text string
}

// PDFPage describes one page of a synthetic PDF. Image, when set, is
// embedded as a full-page JPEG like a scanned page.
type PDFPage struct {
	Lines []PDFLine
	Image image.Image
}

// TextPage lays out lines as a single column of 11pt text starting near the top margin.
func TextPage(lines ...string) PDFPage {
	var p PDFPage
	for i, l := range lines {
		p.Lines = append(p.Lines, PDFLine{X: 72, Y: 90 + float64(i)*16, Size: 11, Text: l})
	}
	return p
}

// WritePDF writes a letter-sized PDF with Helvetica text to dir/name and returns its path.
func WritePDF(t *testing.T, dir, name string, pages ...PDFPage) string {
	t.Helper()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(false)
	pdf.SetAutoPageBreak(false, 0)
	for i, page := range pages {
		pdf.AddPage()
		if page.Image != nil {
			var buf bytes.Buffer
			require.NoError(t, jpeg.Encode(&buf, page.Image, &jpeg.Options{Quality: 90}))
			imgName := fmt.Sprintf("page%d", i+1)
			opts := fpdf.ImageOptions{ImageType: "JPG"}
			pdf.RegisterImageOptionsReader(imgName, opts, &buf)
			pdf.ImageOptions(imgName, 0, 0, 612, 792, false, opts, 0, "")
		}
		for _, l := range page.Lines {
			pdf.SetFont("Helvetica", "", l.Size)
			pdf.Text(l.X, l.Y, l.Text)
		}
	}
	require.NoError(t, pdf.Error())

	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}
