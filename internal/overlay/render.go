package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	legendRowHeight = 18
	legendSwatch    = 12
	legendColumns   = 3
	legendPadding   = 6
)

// Options control overlay rendering.
type Options struct {
	// Scale is pixels per point for pages rendered without a raster.
	Scale float64
	// Thickness of box outlines in pixels.
	Thickness int
	// Dash is the dash length of missing markers in pixels.
	Dash int
	// MatchThreshold is the fraction of a raw region's area that must be
	// covered by a labeled region for it to count as matched.
	MatchThreshold float64
	// Legend appends the label legend below the page.
	Legend bool
}

// DefaultOptions renders at 144 dpi with a legend.
func DefaultOptions() Options {
	return Options{Scale: 2, Thickness: 2, Dash: 6, MatchThreshold: 0.5, Legend: true}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Scale <= 0 {
		o.Scale = def.Scale
	}
	if o.Thickness <= 0 {
		o.Thickness = def.Thickness
	}
	if o.Dash <= 0 {
		o.Dash = def.Dash
	}
	if o.MatchThreshold <= 0 {
		o.MatchThreshold = def.MatchThreshold
	}
	return o
}

// Marker is one box to draw, in page points.
type Marker struct {
	BBox  document.BBox
	Label document.Label
	// Missing markers are drawn dashed in MissingColor.
	Missing bool
	// Raw markers come from the raw run and had no labeled counterpart.
	Raw bool
}

// Color returns the outline color of m.
func (m Marker) Color() color.RGBA {
	if m.Missing {
		return MissingColor
	}
	return ColorOf(m.Label)
}

// Markers lists what RenderPage draws for page: every labeled region, with
// unclassified ones flagged missing, then every region of raw that no labeled
// region covers. raw may be nil.
func Markers(page document.Page, raw *document.Page, threshold float64) []Marker {
	out := make([]Marker, 0, len(page.Regions))
	for _, r := range page.Regions {
		out = append(out, Marker{BBox: r.BBox, Label: r.Label, Missing: !r.Label.Classified()})
	}
	if raw == nil || raw.Failed() {
		return out
	}
	rawPage := *raw
	if page.Width > 0 && page.Height > 0 && (rawPage.Width <= 0 || rawPage.Height <= 0) {
		rawPage.Width, rawPage.Height = page.Width, page.Height
	}
	matched := score.MatchedRegions(rawPage, page, threshold)
	sx, sy := 1.0, 1.0
	if rawPage.Width > 0 && rawPage.Height > 0 && page.Width > 0 && page.Height > 0 {
		sx, sy = page.Width/rawPage.Width, page.Height/rawPage.Height
	}
	for i, r := range rawPage.Regions {
		if matched[i] {
			continue
		}
		out = append(out, Marker{BBox: r.BBox.Scale(sx, sy), Label: document.LabelUnclassified, Missing: true, Raw: true})
	}
	return out
}

// RenderPage draws the markers of page over img and returns an RGBA copy. A
// nil img renders onto a white page of the page's size at opts.Scale.
func RenderPage(img image.Image, page document.Page, raw *document.Page, opts Options) *image.RGBA {
	opts = opts.withDefaults()

	var bounds image.Rectangle
	if img != nil {
		b := img.Bounds()
		bounds = image.Rect(0, 0, b.Dx(), b.Dy())
	} else {
		bounds = image.Rect(0, 0, int(math.Round(page.Width*opts.Scale)), int(math.Round(page.Height*opts.Scale)))
	}
	total := bounds
	if opts.Legend {
		total.Max.Y += legendHeight()
	}
	dst := image.NewRGBA(total)
	draw.Draw(dst, total, image.White, image.Point{}, draw.Src)
	if img != nil {
		draw.Draw(dst, bounds, img, img.Bounds().Min, draw.Src)
	}

	sx, sy := opts.Scale, opts.Scale
	if page.Width > 0 && page.Height > 0 {
		sx = float64(bounds.Dx()) / page.Width
		sy = float64(bounds.Dy()) / page.Height
	}
	for _, m := range Markers(page, raw, opts.MatchThreshold) {
		b := m.BBox.Scale(sx, sy)
		rect := image.Rect(int(math.Floor(b.X0)), int(math.Floor(b.Y0)), int(math.Ceil(b.X1)), int(math.Ceil(b.Y1))).Intersect(bounds)
		if m.Missing {
			drawRect(dst, rect, m.Color(), opts.Thickness, opts.Dash)
			if m.Raw && !rect.Empty() {
				drawLine(dst, rect.Min, rect.Max.Sub(image.Pt(1, 1)), m.Color(), 1)
			}
			continue
		}
		drawRect(dst, rect, m.Color(), opts.Thickness, 0)
	}
	if opts.Legend {
		drawLegend(dst, image.Rect(0, bounds.Max.Y, total.Dx(), total.Max.Y))
	}
	return dst
}

func legendHeight() int {
	rows := (len(Legend()) + legendColumns - 1) / legendColumns
	return rows*legendRowHeight + 2*legendPadding
}

// drawLegend fills area with swatches and names for every legend entry.
func drawLegend(dst *image.RGBA, area image.Rectangle) {
	fillRect(dst, area, color.RGBA{R: 245, G: 245, B: 245, A: 255})
	drawLine(dst, area.Min, image.Pt(area.Max.X-1, area.Min.Y), color.Gray{Y: 160}, 1)

	colWidth := max(area.Dx()/legendColumns, 1)
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13}
	for i, e := range Legend() {
		x := area.Min.X + legendPadding + (i%legendColumns)*colWidth
		y := area.Min.Y + legendPadding + (i/legendColumns)*legendRowHeight
		swatch := image.Rect(x, y+2, x+legendSwatch, y+2+legendSwatch)
		if e.Dashed {
			drawRect(dst, swatch, e.Color, 2, 3)
		} else {
			fillRect(dst, swatch, e.Color)
		}
		d.Dot = fixed.P(x+legendSwatch+4, y+legendSwatch)
		d.DrawString(e.Name)
	}
}
