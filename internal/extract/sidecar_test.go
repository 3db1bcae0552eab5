package extract

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/normalize"
	"github.com/MeKo-Tech/ocreval/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSidecar = `{
  "engine": "layoutparser",
  "pages": [
    {"index": 0, "width": 1224, "height": 1584, "regions": [
      {"bbox": [144, 200, 700, 240], "text": "Overview", "label": "Section-Header"},
      {"bbox": [144, 300, 1080, 330], "text": "Plain paragraph text."},
      {"bbox": [144, 400, 1080, 430], "text": "raw", "label": "unclassified"}
    ]},
    {"index": 1, "status": "failed", "error": "layout model timed out", "regions": []}
  ]
}`

func sidecarDoc(dir string, pages int) *normalize.Document {
	doc := &normalize.Document{ID: "memo", Source: dir + "/memo.pdf", Kind: normalize.KindPDF}
	for i := range pages {
		doc.Pages = append(doc.Pages, normalize.Page{Index: i, Width: 612, Height: 792})
	}
	return doc
}

func TestSidecarEngine_Extract(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "memo.regions.json", []byte(sampleSidecar))
	doc := sidecarDoc(dir, 3)

	e := NewSidecarEngine(SidecarOptions{}, nil)
	assert.Equal(t, dir+"/memo.regions.json", e.Path(doc))

	out, err := Run(context.Background(), e, doc, nil)
	require.NoError(t, err)
	require.Len(t, out.Pages, 3)

	p0 := out.Pages[0]
	require.False(t, p0.Failed())
	require.Len(t, p0.Regions, 3)
	assert.Equal(t, document.NewBBox(72, 100, 350, 120), p0.Regions[0].BBox)
	assert.Equal(t, document.LabelSectionHeader, p0.Regions[0].Label)
	assert.Equal(t, document.LabelBodyText, p0.Regions[1].Label, "unlabeled regions are classified")
	assert.Equal(t, document.LabelUnclassified, p0.Regions[2].Label, "explicit unclassified stays raw")

	assert.True(t, out.Pages[1].Failed())
	assert.Equal(t, "layout model timed out", out.Pages[1].Failure)
	assert.True(t, out.Pages[2].Failed())
	assert.Contains(t, out.Pages[2].Failure, "no page 3")
	assert.NoError(t, out.Validate())
}

func TestSidecarEngine_InvalidRegions(t *testing.T) {
	tests := []struct {
		name   string
		region string
	}{
		{"unknown label", `{"bbox": [0, 0, 10, 10], "text": "x", "label": "sidebar"}`},
		{"outside page", `{"bbox": [0, 0, 700, 10], "text": "x"}`},
		{"unordered box", `{"bbox": [50, 0, 10, 10], "text": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			data := `{"pages": [{"index": 0, "width": 612, "height": 792, "regions": [` + tt.region + `]}]}`
			testutil.WriteFile(t, dir, "memo.ocr.json", []byte(data))

			e := NewSidecarEngine(SidecarOptions{Dir: dir, Suffix: "ocr"}, nil)
			out, err := Run(context.Background(), e, sidecarDoc(t.TempDir(), 1), nil)
			require.NoError(t, err)
			assert.True(t, out.Pages[0].Failed())
			assert.Contains(t, out.Pages[0].Failure, "region 0")
		})
	}
}

func TestSidecarEngine_Malformed(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "memo.regions.json", []byte("{not json"))
	out, err := Run(context.Background(), NewSidecarEngine(SidecarOptions{}, nil), sidecarDoc(dir, 2), nil)
	require.NoError(t, err)
	for _, p := range out.Pages {
		assert.True(t, p.Failed())
		assert.Contains(t, p.Failure, "decode sidecar")
	}
}
