// Package overlay draws extraction regions onto page images for manual
// inspection. Boxes are colored by label from a fixed palette; raw output
// without a classified counterpart is drawn dashed in the missing color.
package overlay

import (
	"image/color"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

// MissingColor marks unclassified regions and raw regions with no spatial match.
var MissingColor = color.RGBA{R: 255, G: 0, B: 255, A: 255}

var palette = map[document.Label]color.RGBA{
	document.LabelBodyText:      {R: 0, G: 114, B: 178, A: 255},
	document.LabelSectionHeader: {R: 213, G: 94, B: 0, A: 255},
	document.LabelListItem:      {R: 0, G: 158, B: 115, A: 255},
	document.LabelTitle:         {R: 204, G: 0, B: 0, A: 255},
	document.LabelCaption:       {R: 230, G: 159, B: 0, A: 255},
	document.LabelFootnote:      {R: 86, G: 180, B: 233, A: 255},
	document.LabelPageHeader:    {R: 120, G: 120, B: 120, A: 255},
	document.LabelPageFooter:    {R: 60, G: 60, B: 60, A: 255},
}

// LegendEntry is one row of the legend.
type LegendEntry struct {
	Label  document.Label
	Name   string
	Color  color.RGBA
	Dashed bool
}

// Palette returns the color of every classified label.
func Palette() map[document.Label]color.RGBA {
	out := make(map[document.Label]color.RGBA, len(palette))
	for l, c := range palette {
		out[l] = c
	}
	return out
}

// ColorOf returns the box color for l. Unclassified and unknown labels get MissingColor.
func ColorOf(l document.Label) color.RGBA {
	if c, ok := palette[l]; ok {
		return c
	}
	return MissingColor
}

// Legend lists the labels in legend order followed by the missing marker.
func Legend() []LegendEntry {
	labels := document.Labels()
	out := make([]LegendEntry, 0, len(labels)+1)
	for _, l := range labels {
		out = append(out, LegendEntry{Label: l, Name: l.DisplayName(), Color: palette[l]})
	}
	return append(out, LegendEntry{
		Label:  document.LabelUnclassified,
		Name:   document.LabelUnclassified.DisplayName(),
		Color:  MissingColor,
		Dashed: true,
	})
}
