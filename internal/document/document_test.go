package document

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"body_text", LabelBodyText, false},
		{"Section Header", LabelSectionHeader, false},
		{"paragraph", LabelBodyText, false},
		{"heading", LabelSectionHeader, false},
		{"header", LabelPageHeader, false},
		{"FOOTER", LabelPageFooter, false},
		{"list", LabelListItem, false},
		{"ocr_caption", LabelCaption, false},
		{"", LabelUnclassified, false},
		{"unclassified", LabelUnclassified, false},
		{"table", LabelUnclassified, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabels_FixedSet(t *testing.T) {
	labels := Labels()
	require.Len(t, labels, 8)
	assert.Equal(t, LabelBodyText, labels[0])
	for _, l := range labels {
		assert.True(t, l.Classified(), l)
	}
	assert.False(t, LabelUnclassified.Classified())
	assert.True(t, LabelUnclassified.Valid())
	assert.False(t, Label("table").Valid())

	// mutating the returned slice must not leak into the package set
	labels[0] = "x"
	assert.Equal(t, LabelBodyText, Labels()[0])
}

func TestRunConfigString(t *testing.T) {
	rc := RunConfig{Engine: EngineTesseract, Colorspace: ColorspaceGray, DPI: 300}
	assert.Equal(t, "tesseract/gray@300", rc.String())
}

func TestParseColorspace(t *testing.T) {
	cs, err := ParseColorspace("Grayscale")
	require.NoError(t, err)
	assert.Equal(t, ColorspaceGray, cs)
	cs, err = ParseColorspace("rgb")
	require.NoError(t, err)
	assert.Equal(t, ColorspaceRGB, cs)
	_, err = ParseColorspace("cmyk")
	assert.Error(t, err)
}

func sampleDocument() *Document {
	return &Document{
		ID:     "doc",
		Engine: EngineNative,
		Pages: []Page{
			{Index: 0, Width: 612, Height: 792, Status: PageOK, Regions: []TextRegion{
				{BBox: NewBBox(10, 10, 200, 30), Text: "Title", Label: LabelTitle},
				{BBox: NewBBox(10, 40, 500, 60), Text: "Body line", Label: LabelBodyText},
			}},
			{Index: 1, Width: 612, Height: 792, Status: PageFailed, Failure: "boom"},
			{Index: 2, Width: 612, Height: 792, Status: PageOK, Regions: []TextRegion{
				{BBox: NewBBox(10, 10, 20, 20), Text: "", Label: LabelUnclassified},
			}},
		},
	}
}

func TestDocumentText(t *testing.T) {
	d := sampleDocument()
	assert.Equal(t, "Title\nBody line\f\f", d.Text())
	assert.Equal(t, "Title\nBody line", d.PageText(0))
	assert.Equal(t, "", d.PageText(1))
	assert.Equal(t, "", d.PageText(7))
	assert.Equal(t, 3, d.RegionCount())
	assert.Equal(t, []int{1}, d.FailedPages())
}

func TestPageFilteredText(t *testing.T) {
	p := sampleDocument().Pages[0]
	got := p.FilteredText(func(r TextRegion) bool { return r.Label != LabelTitle })
	assert.Equal(t, "Body line", got)
}

func TestDocumentValidate(t *testing.T) {
	d := sampleDocument()
	require.NoError(t, d.Validate())

	d.Pages[0].Regions[0].Label = "table"
	d.Pages[0].Regions[1].BBox = BBox{X0: -1, Y0: 0, X1: 5, Y1: 5}
	d.Pages[1].Regions = []TextRegion{{Text: "x", Label: LabelBodyText}}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid label")
	assert.Contains(t, err.Error(), "negative coordinates")
	assert.Contains(t, err.Error(), "failed page carries")
}

func TestFailure(t *testing.T) {
	cause := errors.New("no image")
	f := NewPageFailure(KindNormalization, "report", 1, cause)
	assert.Equal(t, "normalization_failure (report page 2): no image", f.Error())
	assert.ErrorIs(t, f, ErrNormalization)
	assert.ErrorIs(t, f, cause)
	assert.NotErrorIs(t, f, ErrExtraction)

	wrapped := fmt.Errorf("run: %w", NewFailure(KindAlignmentAmbiguity, "doc", errors.New("empty")))
	assert.ErrorIs(t, wrapped, ErrAlignmentAmbiguity)
	assert.Equal(t, KindAlignmentAmbiguity, KindOf(wrapped))
	assert.Equal(t, FailureKind(""), KindOf(cause))

	cfg := ConfigurationInvalid("engine %q does not support %s", "native", "600 dpi")
	assert.ErrorIs(t, cfg, ErrConfigurationInvalid)
	assert.Equal(t, `configuration_invalid: engine "native" does not support 600 dpi`, cfg.Error())
}

func TestGroundTruth(t *testing.T) {
	gt := &GroundTruth{Text: "  \n"}
	assert.True(t, gt.Empty())
	assert.False(t, gt.Segmented())
	gt = &GroundTruth{Text: "a\fb", Pages: []string{"a", "b"}}
	assert.False(t, gt.Empty())
	assert.True(t, gt.Segmented())
}
