package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// Level selects the hOCR element that becomes a region.
type Level string

const (
	LevelLine      Level = "line"
	LevelParagraph Level = "paragraph"
)

// ParseLevel accepts line/ocr_line and paragraph/par/ocr_par.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line", "ocr_line":
		return LevelLine, nil
	case "paragraph", "par", "ocr_par":
		return LevelParagraph, nil
	default:
		return "", fmt.Errorf("unknown hOCR level %q", s)
	}
}

// lineClasses are the hOCR classes tesseract and other engines emit for a line of text.
var lineClasses = map[string]bool{
	"ocr_line": true, "ocr_header": true, "ocr_caption": true, "ocr_textfloat": true,
	"ocr_title": true, "ocr_footer": true, "ocr_pageno": true,
}

// semanticLabels maps hOCR classes that carry a layout meaning onto labels.
var semanticLabels = map[string]document.Label{
	"ocr_title":      document.LabelTitle,
	"ocr_chapter":    document.LabelSectionHeader,
	"ocr_section":    document.LabelSectionHeader,
	"ocr_subsection": document.LabelSectionHeader,
	"ocr_header":     document.LabelSectionHeader,
	"ocr_caption":    document.LabelCaption,
	"ocr_footer":     document.LabelPageFooter,
	"ocr_pageno":     document.LabelPageFooter,
	"ocr_footnote":   document.LabelFootnote,
}

// hocrRegion is a region in hOCR pixel coordinates.
type hocrRegion struct {
	bbox  document.BBox
	text  string
	label document.Label
}

// hocrPage is one ocr_page element.
type hocrPage struct {
	bbox    document.BBox
	regions []hocrRegion
}

var legacyCharsets = map[string]*charmap.Charmap{
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
}

var charsetRe = regexp.MustCompile(`(?i)charset=["']?([\w-]+)`)

// parseHOCR reads every ocr_page from hOCR data, collecting regions at level.
func parseHOCR(data []byte, level Level) ([]hocrPage, error) {
	if m := charsetRe.FindSubmatch(data); m != nil {
		enc := strings.ToLower(string(m[1]))
		if cm, ok := legacyCharsets[enc]; ok {
			decoded, err := cm.NewDecoder().Bytes(data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", enc, err)
			}
			data = decoded
		}
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var pages []hocrPage
	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			pages = append(pages, parsePage(n, level))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(root)

	if len(pages) == 0 {
		return nil, errors.New("no ocr_page elements found in hOCR data")
	}
	return pages, nil
}

func parsePage(n *html.Node, level Level) hocrPage {
	page := hocrPage{}
	if b, ok := titleBBox(attr(n, "title")); ok {
		page.bbox = b
	}

	var walk func(*html.Node, document.Label)
	walk = func(n *html.Node, inherited document.Label) {
		if n.Type != html.ElementNode {
			return
		}
		class := ocrClass(n)
		label := inherited
		if l, ok := semanticLabels[class]; ok {
			label = l
		}
		matches := (level == LevelLine && lineClasses[class]) || (level == LevelParagraph && class == "ocr_par")
		if matches {
			if b, ok := titleBBox(attr(n, "title")); ok {
				text := collectText(n)
				if text != "" {
					page.regions = append(page.regions, hocrRegion{bbox: b, text: text, label: label})
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, label)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, "")
	}
	return page
}

// collectText joins the words below n. Lines inside a paragraph are
// separated by newlines.
func collectText(n *html.Node) string {
	var lines []string
	var words []string
	flush := func() {
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
			words = nil
		}
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
			if w := strings.TrimSpace(plainText(n)); w != "" {
				words = append(words, w)
			}
			return
		}
		if n.Type == html.ElementNode && lineClasses[ocrClass(n)] {
			flush()
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			flush()
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	flush()
	if len(lines) == 0 {
		return strings.Join(strings.Fields(plainText(n)), " ")
	}
	return strings.Join(lines, "\n")
}

func plainText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// ocrClass returns the first ocr_* class of n.
func ocrClass(n *html.Node) string {
	for _, c := range strings.Fields(attr(n, "class")) {
		if strings.HasPrefix(c, "ocr_") {
			return c
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// titleBBox extracts the bbox property of an hOCR title attribute like
// "bbox 100 200 300 400; x_wconf 95".
func titleBBox(title string) (document.BBox, bool) {
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) < 5 || items[0] != "bbox" {
			continue
		}
		var v [4]float64
		for i := range v {
			f, err := strconv.ParseFloat(items[i+1], 64)
			if err != nil {
				return document.BBox{}, false
			}
			v[i] = f
		}
		return document.NewBBox(v[0], v[1], v[2], v[3]), true
	}
	return document.BBox{}, false
}

// toRegions converts hOCR regions to page coordinates and classifies those
// without a semantic hOCR class. pxWidth and pxHeight give the pixel size the
// hOCR was produced at; zero falls back to the ocr_page bbox.
func (hp hocrPage) toRegions(page normalize.Page, pxWidth, pxHeight float64) []document.TextRegion {
	if pxWidth <= 0 || pxHeight <= 0 {
		pxWidth, pxHeight = hp.bbox.Width(), hp.bbox.Height()
	}
	sx, sy := 1.0, 1.0
	if pxWidth > 0 && pxHeight > 0 && page.Width > 0 && page.Height > 0 {
		sx, sy = page.Width/pxWidth, page.Height/pxHeight
	}
	out := document.Page{Index: page.Index, Width: page.Width, Height: page.Height}
	for _, r := range hp.regions {
		label := r.label
		if label == "" {
			label = document.LabelUnclassified
		}
		out.Regions = append(out.Regions, document.TextRegion{
			BBox:  r.bbox.Scale(sx, sy),
			Text:  r.text,
			Label: label,
		})
	}
	ClassifyPage(&out)
	return out.Regions
}

// HOCREngine reads precomputed hOCR files produced by any OCR engine.
type HOCREngine struct {
	opts   HOCROptions
	logger *slog.Logger
}

// NewHOCREngine creates an hOCR sidecar engine.
func NewHOCREngine(opts HOCROptions, logger *slog.Logger) *HOCREngine {
	if opts.Level == "" {
		opts.Level = LevelLine
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HOCREngine{opts: opts, logger: logger}
}

func (e *HOCREngine) ID() document.EngineID { return document.EngineHOCR }

func (e *HOCREngine) Capabilities() Capabilities {
	return Capabilities{Inputs: []normalize.Kind{normalize.KindPDF, normalize.KindImage}}
}

// Path returns the hOCR file expected for doc.
func (e *HOCREngine) Path(doc *normalize.Document) string {
	dir := e.opts.Dir
	if dir == "" {
		dir = filepath.Dir(doc.Source)
	}
	for _, ext := range []string{".hocr", ".hocr.html", ".html"} {
		p := filepath.Join(dir, doc.ID+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, doc.ID+".hocr")
}

// Extract maps the n-th ocr_page of the sidecar to the n-th page of the document.
func (e *HOCREngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	path := e.Path(doc)
	data, err := os.ReadFile(path) //nolint:gosec // G304: sidecar path derived from the input document
	if err != nil {
		return nil, fmt.Errorf("read hOCR: %w", err)
	}
	pages, err := parseHOCR(data, e.opts.Level)
	if err != nil {
		return nil, fmt.Errorf("parse hOCR %s: %w", path, err)
	}
	e.logger.Debug("hOCR loaded", "document", doc.ID, "path", path, "pages", len(pages))

	return extractPages(ctx, doc, e.ID(), func(_ context.Context, in normalize.Page) ([]document.TextRegion, error) {
		if in.Index >= len(pages) {
			return nil, fmt.Errorf("hOCR has %d pages, no page %d", len(pages), in.Index+1)
		}
		return pages[in.Index].toRegions(in, 0, 0), nil
	})
}
