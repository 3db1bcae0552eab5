package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
)

// SidecarFile is the JSON region dump written by engines that cannot run
// in-process. Coordinates are in the page's own Width x Height space with a
// top-left origin; they are rescaled to the normalized page geometry.
type SidecarFile struct {
	Engine string        `json:"engine,omitempty"`
	Pages  []SidecarPage `json:"pages"`
}

// SidecarPage is one page of a sidecar dump.
type SidecarPage struct {
	Index   int             `json:"index"`
	Width   float64         `json:"width,omitempty"`
	Height  float64         `json:"height,omitempty"`
	Status  string          `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
	Regions []SidecarRegion `json:"regions"`
}

// SidecarRegion is one region of a sidecar page. Label accepts any name
// ParseLabel understands; an empty label asks for heuristic classification.
type SidecarRegion struct {
	BBox  [4]float64 `json:"bbox"`
	Text  string     `json:"text"`
	Label string     `json:"label,omitempty"`
}

// SidecarEngine reads <id>.<suffix>.json region dumps.
type SidecarEngine struct {
	opts   SidecarOptions
	logger *slog.Logger
}

// NewSidecarEngine creates a JSON sidecar engine.
func NewSidecarEngine(opts SidecarOptions, logger *slog.Logger) *SidecarEngine {
	if opts.Suffix == "" {
		opts.Suffix = "regions"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SidecarEngine{opts: opts, logger: logger}
}

func (e *SidecarEngine) ID() document.EngineID { return document.EngineSidecar }

func (e *SidecarEngine) Capabilities() Capabilities {
	return Capabilities{Inputs: []normalize.Kind{normalize.KindPDF, normalize.KindImage}}
}

// Path returns the sidecar file expected for doc.
func (e *SidecarEngine) Path(doc *normalize.Document) string {
	dir := e.opts.Dir
	if dir == "" {
		dir = filepath.Dir(doc.Source)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s.json", doc.ID, e.opts.Suffix))
}

// Extract loads the sidecar and maps its pages by index.
func (e *SidecarEngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	path := e.Path(doc)
	data, err := os.ReadFile(path) //nolint:gosec // G304: sidecar path derived from the input document
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var file SidecarFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode sidecar %s: %w", path, err)
	}
	byIndex := make(map[int]SidecarPage, len(file.Pages))
	for _, p := range file.Pages {
		byIndex[p.Index] = p
	}
	e.logger.Debug("sidecar loaded", "document", doc.ID, "path", path, "pages", len(file.Pages), "source_engine", file.Engine)

	return extractPages(ctx, doc, e.ID(), func(_ context.Context, in normalize.Page) ([]document.TextRegion, error) {
		sp, ok := byIndex[in.Index]
		if !ok {
			return nil, fmt.Errorf("sidecar has no page %d", in.Index+1)
		}
		if sp.Status == string(document.PageFailed) {
			msg := sp.Error
			if msg == "" {
				msg = "source engine reported failure"
			}
			return nil, errors.New(msg)
		}
		return sp.regions(in)
	})
}

func (sp SidecarPage) regions(in normalize.Page) ([]document.TextRegion, error) {
	sx, sy := 1.0, 1.0
	if sp.Width > 0 && sp.Height > 0 && in.Width > 0 && in.Height > 0 {
		sx, sy = in.Width/sp.Width, in.Height/sp.Height
	}
	out := document.Page{Index: in.Index, Width: in.Width, Height: in.Height}
	var unlabeled []int
	for i, r := range sp.Regions {
		label, err := document.ParseLabel(r.Label)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		if r.Label == "" {
			unlabeled = append(unlabeled, i)
		}
		b := document.BBox{X0: r.BBox[0], Y0: r.BBox[1], X1: r.BBox[2], Y1: r.BBox[3]}
		if err := b.Validate(sp.Width, sp.Height); err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		out.Regions = append(out.Regions, document.TextRegion{BBox: b.Scale(sx, sy), Text: r.Text, Label: label})
	}
	// an explicit "unclassified" is raw output and stays unlabeled
	layout := newPageLayout(&out)
	for _, i := range unlabeled {
		out.Regions[i].Label = layout.classify(out.Regions[i])
	}
	return out.Regions, nil
}
