package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/dslipak/pdf"
)

// Approximate glyph metrics relative to the font size, used when the PDF
// carries no width table and to place line boxes around the baseline.
const (
	ascentRatio     = 0.8
	descentRatio    = 0.2
	fallbackAdvance = 0.5
	wordSpaceRatio  = 0.15
)

// NativeEngine reads the text layer of born-digital PDFs.
type NativeEngine struct {
	opts   NativeOptions
	logger *slog.Logger
}

// NewNativeEngine creates a native text-layer engine.
func NewNativeEngine(opts NativeOptions, logger *slog.Logger) *NativeEngine {
	def := DefaultNativeOptions()
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = def.RowTolerance
	}
	if opts.GapFactor <= 0 {
		opts.GapFactor = def.GapFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NativeEngine{opts: opts, logger: logger}
}

func (e *NativeEngine) ID() document.EngineID { return document.EngineNative }

func (e *NativeEngine) Capabilities() Capabilities {
	return Capabilities{Inputs: []normalize.Kind{normalize.KindPDF}}
}

// Extract groups the glyphs of each page into line regions.
func (e *NativeEngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	reader, err := pdf.Open(doc.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", doc.Source, err)
	}
	total := reader.NumPage()

	return extractPages(ctx, doc, e.ID(), func(_ context.Context, in normalize.Page) ([]document.TextRegion, error) {
		num := in.Index + 1
		if num > total {
			return nil, fmt.Errorf("page %d beyond text layer page count %d", num, total)
		}
		page := reader.Page(num)
		if page.V.IsNull() {
			return nil, fmt.Errorf("page %d is null", num)
		}
		texts, err := pageGlyphs(page)
		if err != nil {
			return nil, err
		}
		out := document.Page{Index: in.Index, Width: in.Width, Height: in.Height}
		for _, l := range e.lines(texts) {
			out.Regions = append(out.Regions, l.region(in.Height))
		}
		ClassifyPage(&out)
		e.logger.Debug("native page extracted", "document", doc.ID, "page", num, "regions", len(out.Regions))
		return out.Regions, nil
	})
}

// pageGlyphs returns the positioned glyphs of page. The content interpreter
// panics on malformed operators; that is reported as a page error.
func pageGlyphs(page pdf.Page) (texts []pdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return page.Content().Text, nil
}

// textLine is a run of glyphs on one baseline without a wide gap.
type textLine struct {
	x0, x1   float64
	baseline float64
	size     float64
	text     strings.Builder
	lastEnd  float64
	lastX    float64
}

func (l *textLine) region(pageHeight float64) document.TextRegion {
	top := l.baseline + ascentRatio*l.size
	bottom := l.baseline - descentRatio*l.size
	if pageHeight > 0 {
		top, bottom = pageHeight-top, pageHeight-bottom
	}
	return document.TextRegion{
		BBox: document.NewBBox(l.x0, math.Max(top, 0), l.x1, math.Max(bottom, 0)),
		Text: strings.TrimSpace(l.text.String()),
	}
}

func advance(t pdf.Text) float64 {
	if t.W > 0 {
		return t.W
	}
	return fallbackAdvance * t.FontSize
}

// lines groups glyphs into rows by baseline, then splits rows at gaps wider
// than GapFactor times the font size.
func (e *NativeEngine) lines(texts []pdf.Text) []*textLine {
	type row struct {
		yMin, yMax float64
		texts      []pdf.Text
	}
	var rows []*row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		var found *row
		for _, r := range rows {
			if t.Y >= r.yMin-e.opts.RowTolerance && t.Y <= r.yMax+e.opts.RowTolerance {
				found = r
				break
			}
		}
		if found == nil {
			found = &row{yMin: t.Y, yMax: t.Y}
			rows = append(rows, found)
		}
		found.texts = append(found.texts, t)
		found.yMin = math.Min(found.yMin, t.Y)
		found.yMax = math.Max(found.yMax, t.Y)
	}
	// top of page first
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].yMax > rows[j].yMax })

	var out []*textLine
	for _, r := range rows {
		sort.SliceStable(r.texts, func(i, j int) bool { return r.texts[i].X < r.texts[j].X })
		var cur *textLine
		for _, t := range r.texts {
			if cur != nil {
				gap := t.X - cur.lastEnd
				if gap > e.opts.GapFactor*math.Max(cur.size, t.FontSize) {
					out = append(out, cur)
					cur = nil
				} else if gap > wordSpaceRatio*t.FontSize && !endsWithSpace(&cur.text) && !startsWithSpace(t.S) {
					cur.text.WriteByte(' ')
				}
			}
			if cur == nil {
				cur = &textLine{x0: t.X, baseline: t.Y, size: t.FontSize, lastX: t.X, lastEnd: t.X}
			}
			cur.text.WriteString(t.S)
			// glyphs without widths share their run's origin; accumulate the estimate
			if t.W == 0 && t.X <= cur.lastX {
				cur.lastEnd += advance(t)
			} else {
				cur.lastEnd = math.Max(cur.lastEnd, t.X+advance(t))
			}
			cur.lastX = math.Max(cur.lastX, t.X)
			cur.x1 = math.Max(cur.x1, cur.lastEnd)
			cur.size = math.Max(cur.size, t.FontSize)
			cur.baseline = math.Min(cur.baseline, t.Y)
		}
		if cur != nil {
			out = append(out, cur)
		}
	}

	kept := out[:0]
	for _, l := range out {
		if strings.TrimSpace(l.text.String()) != "" {
			kept = append(kept, l)
		}
	}
	return kept
}

func endsWithSpace(b *strings.Builder) bool {
	s := b.String()
	return s == "" || unicode.IsSpace(rune(s[len(s)-1]))
}

func startsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[0]))
}
