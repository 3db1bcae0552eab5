// Package extract runs extraction engines over normalized documents and
// turns their output into positioned, labeled text regions.
//
// Every input page yields exactly one output page. A page the engine could
// not process is marked failed and carries no regions; engines never try to
// reconcile their output with another engine's.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
)

// Capabilities describe which run configurations an engine accepts.
type Capabilities struct {
	// NeedsRaster is set for engines that read page pixels.
	NeedsRaster bool
	// Inputs lists the accepted document kinds.
	Inputs []normalize.Kind
	// Colorspaces lists accepted colorspaces; empty accepts any.
	Colorspaces []document.Colorspace
	// MinDPI and MaxDPI bound the raster resolution; zero is unbounded.
	MinDPI int
	MaxDPI int
}

// Check validates cfg against the capabilities. DPI and colorspace are only
// checked for raster engines.
func (c Capabilities) Check(cfg document.RunConfig) error {
	if !c.NeedsRaster {
		return nil
	}
	if _, err := document.ParseColorspace(string(cfg.Colorspace)); err != nil {
		return err
	}
	if len(c.Colorspaces) > 0 && !slices.Contains(c.Colorspaces, cfg.Colorspace) {
		return fmt.Errorf("colorspace %q not supported", cfg.Colorspace)
	}
	if cfg.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", cfg.DPI)
	}
	if c.MinDPI > 0 && cfg.DPI < c.MinDPI {
		return fmt.Errorf("dpi %d below minimum %d", cfg.DPI, c.MinDPI)
	}
	if c.MaxDPI > 0 && cfg.DPI > c.MaxDPI {
		return fmt.Errorf("dpi %d above maximum %d", cfg.DPI, c.MaxDPI)
	}
	return nil
}

// Accepts reports whether the engine reads documents of kind k.
func (c Capabilities) Accepts(k normalize.Kind) bool {
	return len(c.Inputs) == 0 || slices.Contains(c.Inputs, k)
}

// Engine is one extraction engine.
type Engine interface {
	ID() document.EngineID
	Capabilities() Capabilities
	// Extract returns one page per processed input page. Pages it omits are
	// reported as failed by Run.
	Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error)
}

// Factory creates an engine instance.
type Factory func() (Engine, error)

// Registry maps engine ids to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[document.EngineID]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[document.EngineID]Factory)}
}

// DefaultRegistry registers every built-in engine configured by cfg.
func DefaultRegistry(cfg Config, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register(document.EngineNative, func() (Engine, error) {
		return NewNativeEngine(cfg.Native, logger), nil
	})
	r.Register(document.EngineTesseract, func() (Engine, error) {
		return NewTesseractEngine(cfg.Tesseract, logger), nil
	})
	r.Register(document.EngineHOCR, func() (Engine, error) {
		return NewHOCREngine(cfg.HOCR, logger), nil
	})
	r.Register(document.EngineSidecar, func() (Engine, error) {
		return NewSidecarEngine(cfg.Sidecar, logger), nil
	})
	r.Register(document.EngineDocumentAI, func() (Engine, error) {
		return NewDocumentAIEngine(cfg.DocumentAI, logger)
	})
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id document.EngineID, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// IDs returns the registered engine ids in sorted order.
func (r *Registry) IDs() []document.EngineID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]document.EngineID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// New creates the engine registered for id. Unknown ids and factory errors
// are ConfigurationInvalid.
func (r *Registry) New(id document.EngineID) (Engine, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, document.ConfigurationInvalid("unknown engine %q (available: %v)", id, r.IDs())
	}
	e, err := f()
	if err != nil {
		return nil, document.ConfigurationInvalid("engine %s: %w", id, err)
	}
	return e, nil
}

// ValidateRunConfig creates the engine for cfg and checks the combination
// against its capabilities before any per-page work is done.
func (r *Registry) ValidateRunConfig(cfg document.RunConfig) (Engine, error) {
	e, err := r.New(cfg.Engine)
	if err != nil {
		return nil, err
	}
	if err := e.Capabilities().Check(cfg); err != nil {
		return nil, document.ConfigurationInvalid("run config %s: %w", cfg, err)
	}
	return e, nil
}

// Run extracts doc with e and enforces the page contract: output pages match
// input pages one to one, normalization failures become failed pages,
// regions are clamped to their page and carry the engine id. A document-level
// engine error fails every page rather than the call; only configuration
// errors and cancellation are returned.
func Run(ctx context.Context, e Engine, doc *normalize.Document, logger *slog.Logger) (*document.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	caps := e.Capabilities()
	if !caps.Accepts(doc.Kind) {
		return nil, document.ConfigurationInvalid("engine %s does not accept %s input", e.ID(), doc.Kind)
	}
	if err := caps.Check(doc.Config); err != nil {
		return nil, document.ConfigurationInvalid("run config %s: %w", doc.Config, err)
	}

	out, err := e.Extract(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if document.KindOf(err) == document.KindConfigurationInvalid {
			return nil, err
		}
		logger.Warn("extraction failed for document",
			"document", doc.ID, "engine", e.ID(), "config", doc.Config.String(), "error", err)
		out = nil
	}

	byIndex := make(map[int]document.Page)
	if out != nil {
		for _, p := range out.Pages {
			byIndex[p.Index] = p
		}
	}

	result := &document.Document{
		ID:     doc.ID,
		Source: doc.Source,
		Engine: e.ID(),
		Config: doc.Config,
		Pages:  make([]document.Page, 0, len(doc.Pages)),
	}
	for _, in := range doc.Pages {
		var page document.Page
		switch p, ok := byIndex[in.Index]; {
		case in.Failed():
			page = failedPage(in, fmt.Errorf("normalization: %w", in.Failure))
		case err != nil:
			page = failedPage(in, err)
		case !ok:
			page = failedPage(in, errors.New("engine returned no result for page"))
		default:
			page = finishPage(p, in, e.ID())
		}
		if page.Failed() {
			logger.Debug("page extraction failed",
				"document", doc.ID, "engine", e.ID(), "page", in.Index+1, "reason", page.Failure)
		}
		result.Pages = append(result.Pages, page)
	}
	return result, nil
}

func failedPage(in normalize.Page, err error) document.Page {
	return document.Page{
		Index:   in.Index,
		Width:   in.Width,
		Height:  in.Height,
		Status:  document.PageFailed,
		Failure: err.Error(),
	}
}

func finishPage(p document.Page, in normalize.Page, id document.EngineID) document.Page {
	if p.Status == document.PageFailed {
		p.Regions = nil
		if p.Failure == "" {
			p.Failure = "engine reported failure"
		}
	} else {
		p.Status = document.PageOK
	}
	p.Index = in.Index
	if in.Width > 0 && in.Height > 0 {
		p.Width, p.Height = in.Width, in.Height
	}
	regions := make([]document.TextRegion, 0, len(p.Regions))
	for _, r := range p.Regions {
		r.BBox = r.BBox.Clamp(p.Width, p.Height)
		r.Engine = id
		if r.Label == "" {
			r.Label = document.LabelUnclassified
		}
		regions = append(regions, r)
	}
	if p.Status == document.PageOK {
		p.Regions = regions
	}
	return p
}

// pageFunc extracts the regions of one page.
type pageFunc func(ctx context.Context, page normalize.Page) ([]document.TextRegion, error)

// extractPages applies fn to every usable page. A page error marks only that
// page failed; cancellation aborts.
func extractPages(ctx context.Context, doc *normalize.Document, id document.EngineID, fn pageFunc) (*document.Document, error) {
	out := &document.Document{ID: doc.ID, Source: doc.Source, Engine: id, Config: doc.Config}
	for _, in := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if in.Failed() {
			continue
		}
		page := document.Page{Index: in.Index, Width: in.Width, Height: in.Height, Status: document.PageOK}
		regions, err := fn(ctx, in)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			page.Status = document.PageFailed
			page.Failure = err.Error()
		} else {
			page.Regions = regions
		}
		out.Pages = append(out.Pages, page)
	}
	return out, nil
}
