package document

import (
	"errors"
	"fmt"
	"strings"
)

// EngineID identifies an extraction engine.
type EngineID string

const (
	EngineNative     EngineID = "native"
	EngineTesseract  EngineID = "tesseract"
	EngineHOCR       EngineID = "hocr"
	EngineSidecar    EngineID = "sidecar"
	EngineDocumentAI EngineID = "documentai"
)

// Colorspace is the raster colorspace a document is normalized to.
type Colorspace string

const (
	ColorspaceGray Colorspace = "gray"
	ColorspaceRGB  Colorspace = "rgb"
)

// ParseColorspace accepts gray/grayscale and rgb/color.
func ParseColorspace(s string) (Colorspace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey", "grayscale", "greyscale":
		return ColorspaceGray, nil
	case "rgb", "color", "colour":
		return ColorspaceRGB, nil
	default:
		return "", fmt.Errorf("unsupported colorspace %q", s)
	}
}

// RunConfig selects the engine, colorspace and resolution of one extraction run.
type RunConfig struct {
	Engine     EngineID   `json:"engine" yaml:"engine"`
	Colorspace Colorspace `json:"colorspace" yaml:"colorspace"`
	DPI        int        `json:"dpi" yaml:"dpi"`
}

// String renders the config as engine/colorspace@dpi.
func (c RunConfig) String() string {
	return fmt.Sprintf("%s/%s@%d", c.Engine, c.Colorspace, c.DPI)
}

// PageStatus records whether the engine processed a page.
type PageStatus string

const (
	PageOK     PageStatus = "ok"
	PageFailed PageStatus = "failed"
)

// TextRegion is a positioned span of extracted text.
type TextRegion struct {
	BBox   BBox     `json:"bbox" yaml:"bbox"`
	Text   string   `json:"text" yaml:"text"`
	Label  Label    `json:"label" yaml:"label"`
	Engine EngineID `json:"engine" yaml:"engine"`
}

// Page is one page of extraction output. A failed page carries no regions,
// which keeps it distinct from a processed page whose regions hold no text.
type Page struct {
	Index   int          `json:"index" yaml:"index"`
	Width   float64      `json:"width" yaml:"width"`
	Height  float64      `json:"height" yaml:"height"`
	Status  PageStatus   `json:"status" yaml:"status"`
	Failure string       `json:"failure,omitempty" yaml:"failure,omitempty"`
	Regions []TextRegion `json:"regions" yaml:"regions"`
}

// Failed reports whether the page was not processed.
func (p Page) Failed() bool { return p.Status == PageFailed }

// Text joins the page's region texts in reading order.
func (p Page) Text() string {
	parts := make([]string, 0, len(p.Regions))
	for _, r := range p.Regions {
		if r.Text != "" {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// FilteredText joins the texts of regions accepted by keep.
func (p Page) FilteredText(keep func(TextRegion) bool) string {
	parts := make([]string, 0, len(p.Regions))
	for _, r := range p.Regions {
		if r.Text != "" && keep(r) {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Document is the output of one extraction run over one input.
type Document struct {
	ID     string    `json:"id" yaml:"id"`
	Source string    `json:"source" yaml:"source"`
	Engine EngineID  `json:"engine" yaml:"engine"`
	Config RunConfig `json:"config" yaml:"config"`
	Pages  []Page    `json:"pages" yaml:"pages"`
}

// Text joins all page texts separated by form feeds.
func (d *Document) Text() string {
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\f")
}

// PageText returns the text of the page at position i, or "" when out of range.
func (d *Document) PageText(i int) string {
	if i < 0 || i >= len(d.Pages) {
		return ""
	}
	return d.Pages[i].Text()
}

// RegionCount returns the number of regions over all pages.
func (d *Document) RegionCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Regions)
	}
	return n
}

// FailedPages returns the indices of pages marked failed.
func (d *Document) FailedPages() []int {
	var out []int
	for _, p := range d.Pages {
		if p.Failed() {
			out = append(out, p.Index)
		}
	}
	return out
}

// Validate checks region invariants: page-local bounding boxes and labels from the fixed set.
func (d *Document) Validate() error {
	var errs []error
	for _, p := range d.Pages {
		if p.Failed() && len(p.Regions) > 0 {
			errs = append(errs, fmt.Errorf("page %d: failed page carries %d regions", p.Index, len(p.Regions)))
		}
		for i, r := range p.Regions {
			if err := r.BBox.Validate(p.Width, p.Height); err != nil {
				errs = append(errs, fmt.Errorf("page %d region %d: %w", p.Index, i, err))
			}
			if !r.Label.Valid() {
				errs = append(errs, fmt.Errorf("page %d region %d: invalid label %q", p.Index, i, r.Label))
			}
		}
	}
	return errors.Join(errs...)
}
