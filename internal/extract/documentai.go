package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"
)

// processFunc sends raw document bytes to a Document AI processor.
type processFunc func(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error)

// DocumentAIEngine sends the source document to a Google Document AI
// processor and turns its paragraphs into regions. Responses are cached as
// protobuf JSON in CacheDir when set, which also allows offline runs.
type DocumentAIEngine struct {
	opts    DocumentAIOptions
	logger  *slog.Logger
	process processFunc
}

// NewDocumentAIEngine creates a Document AI engine. A processor must be
// configured unless cached responses are available.
func NewDocumentAIEngine(opts DocumentAIOptions, logger *slog.Logger) (*DocumentAIEngine, error) {
	if opts.CacheDir == "" && (opts.ProjectID == "" || opts.ProcessorID == "") {
		return nil, errors.New("documentai requires project_id and processor_id or a cache_dir")
	}
	if opts.Location == "" {
		opts.Location = "us"
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &DocumentAIEngine{opts: opts, logger: logger}
	e.process = e.processRemote
	return e, nil
}

func (e *DocumentAIEngine) ID() document.EngineID { return document.EngineDocumentAI }

func (e *DocumentAIEngine) Capabilities() Capabilities {
	return Capabilities{Inputs: []normalize.Kind{normalize.KindPDF, normalize.KindImage}}
}

// processRemote calls the configured processor.
func (e *DocumentAIEngine) processRemote(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error) {
	if e.opts.ProjectID == "" || e.opts.ProcessorID == "" {
		return nil, errors.New("no cached response and no processor configured")
	}
	clientOpts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", e.opts.Location)),
	}
	if e.opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(e.opts.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	defer func() { _ = client.Close() }()

	req := &documentaipb.ProcessRequest{
		Name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			e.opts.ProjectID, e.opts.Location, e.opts.ProcessorID),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: content, MimeType: mimeType},
		},
		SkipHumanReview: true,
	}
	resp, err := client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}
	return resp.GetDocument(), nil
}

func (e *DocumentAIEngine) cachePath(doc *normalize.Document) string {
	if e.opts.CacheDir == "" {
		return ""
	}
	return filepath.Join(e.opts.CacheDir, doc.ID+".documentai.json")
}

// load returns the cached response for doc or processes it.
func (e *DocumentAIEngine) load(ctx context.Context, doc *normalize.Document) (*documentaipb.Document, error) {
	cache := e.cachePath(doc)
	if cache != "" {
		if data, err := os.ReadFile(cache); err == nil { //nolint:gosec // G304: cache path derived from config
			var pb documentaipb.Document
			if err := protojson.Unmarshal(data, &pb); err != nil {
				return nil, fmt.Errorf("decode cached response %s: %w", cache, err)
			}
			e.logger.Debug("documentai cache hit", "document", doc.ID, "path", cache)
			return &pb, nil
		}
	}

	content, err := os.ReadFile(doc.Source) //nolint:gosec // G304: reading the input document is intended
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	pb, err := e.process(ctx, content, mimeType(doc.Source))
	if err != nil {
		return nil, err
	}
	if cache != "" {
		if data, err := protojson.Marshal(pb); err == nil {
			if err := os.WriteFile(cache, data, 0o600); err != nil {
				e.logger.Warn("failed to cache documentai response", "document", doc.ID, "error", err)
			}
		}
	}
	return pb, nil
}

// Extract processes the whole document in one request.
func (e *DocumentAIEngine) Extract(ctx context.Context, doc *normalize.Document) (*document.Document, error) {
	pb, err := e.load(ctx, doc)
	if err != nil {
		return nil, err
	}
	return FromDocumentAI(pb, doc), nil
}

// FromDocumentAI converts a Document AI response into extraction output for
// doc. Document AI page n maps to normalized page index n-1; paragraphs become
// regions scaled from normalized vertices to page points.
func FromDocumentAI(pb *documentaipb.Document, doc *normalize.Document) *document.Document {
	out := &document.Document{ID: doc.ID, Source: doc.Source, Engine: document.EngineDocumentAI, Config: doc.Config}
	byNumber := make(map[int]*documentaipb.Document_Page, len(pb.GetPages()))
	for i, p := range pb.GetPages() {
		n := int(p.GetPageNumber())
		if n == 0 {
			n = i + 1
		}
		byNumber[n] = p
	}

	for _, in := range doc.Pages {
		if in.Failed() {
			continue
		}
		p, ok := byNumber[in.Index+1]
		if !ok {
			continue
		}
		page := document.Page{Index: in.Index, Width: in.Width, Height: in.Height, Status: document.PageOK}
		for _, para := range p.GetParagraphs() {
			text := strings.TrimSpace(layoutText(para.GetLayout(), pb.GetText()))
			if text == "" {
				continue
			}
			box, ok := layoutBBox(para.GetLayout(), p.GetDimension(), in.Width, in.Height)
			if !ok {
				continue
			}
			page.Regions = append(page.Regions, document.TextRegion{BBox: box, Text: text})
		}
		ClassifyPage(&page)
		out.Pages = append(out.Pages, page)
	}
	return out
}

// layoutText resolves the text anchor segments of layout against the document text.
func layoutText(layout *documentaipb.Document_Page_Layout, full string) string {
	var b strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 || end > len(full) || start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

// layoutBBox returns the bounding box of layout in page points. Normalized
// vertices are preferred; pixel vertices are scaled by the page dimension.
func layoutBBox(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension, w, h float64) (document.BBox, bool) {
	poly := layout.GetBoundingPoly()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	if nv := poly.GetNormalizedVertices(); len(nv) > 0 {
		for _, v := range nv {
			add(float64(v.GetX())*w, float64(v.GetY())*h)
		}
	} else if vs := poly.GetVertices(); len(vs) > 0 && dim.GetWidth() > 0 && dim.GetHeight() > 0 {
		sx, sy := w/float64(dim.GetWidth()), h/float64(dim.GetHeight())
		for _, v := range vs {
			add(float64(v.GetX())*sx, float64(v.GetY())*sy)
		}
	} else {
		return document.BBox{}, false
	}
	return document.NewBBox(minX, minY, maxX, maxY).Clamp(w, h), true
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/pdf"
	}
}
