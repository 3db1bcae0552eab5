package score

import (
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

const (
	pageW      = 612.0
	pageH      = 792.0
	lineHeight = 10.0
	lineStep   = 14.0
)

// docFromPages builds a document with one body_text region per non-empty line.
func docFromPages(id string, cfg document.RunConfig, pages ...string) *document.Document {
	d := &document.Document{ID: id, Engine: cfg.Engine, Config: cfg}
	for i, text := range pages {
		p := document.Page{Index: i, Width: pageW, Height: pageH, Status: document.PageOK}
		y := 20.0
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			p.Regions = append(p.Regions, document.TextRegion{
				BBox:   document.NewBBox(36, y, 576, y+lineHeight),
				Text:   line,
				Label:  document.LabelBodyText,
				Engine: cfg.Engine,
			})
			y += lineStep
		}
		d.Pages = append(d.Pages, p)
	}
	return d
}

var (
	tesseractGray300 = document.RunConfig{Engine: document.EngineTesseract, Colorspace: document.ColorspaceGray, DPI: 300}
	tesseractRGB600  = document.RunConfig{Engine: document.EngineTesseract, Colorspace: document.ColorspaceRGB, DPI: 600}
	sidecarRGB300    = document.RunConfig{Engine: document.EngineSidecar, Colorspace: document.ColorspaceRGB, DPI: 300}
	native           = document.RunConfig{Engine: document.EngineNative, Colorspace: document.ColorspaceRGB, DPI: 72}
)

func bodyPage(n int, seed string) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = seed + " line of body text describing the investigation results"
	}
	return strings.Join(lines, "\n")
}

func tocPage(entries int) string {
	lines := []string{"Contents"}
	for i := range entries {
		lines = append(lines, "Chapter "+string(rune('A'+i))+" Results "+string(rune('0'+i%10)))
	}
	return strings.Join(lines, "\n")
}
