package score

import (
	"github.com/MeKo-Tech/ocreval/internal/align"
	"github.com/MeKo-Tech/ocreval/internal/document"
)

// Breakdown splits character loss by where the text went missing.
//
//	Normalization  = baseline raw coverage - raw coverage (raster conversion)
//	Extraction     = 1 - baseline raw coverage, or 1 - raw coverage without a baseline
//	Classification = raw coverage - scored coverage (label filter)
//
// The three parts sum to the scored character loss. Normalization is undefined
// without a baseline run and may be negative when the run beats its baseline.
type Breakdown struct {
	Baseline       string `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Normalization  Ratio  `json:"normalization" yaml:"normalization"`
	Extraction     Ratio  `json:"extraction" yaml:"extraction"`
	Classification Ratio  `json:"classification" yaml:"classification"`
}

// Total returns the sum of the defined parts.
func (b Breakdown) Total() float64 {
	return b.Normalization.Or(0) + b.Extraction.Or(0) + b.Classification.Or(0)
}

// LossBreakdown attributes the loss of doc against gt. baseline is an optional
// run of the same document under a lossless configuration (typically the
// native text layer); nil leaves normalization loss undefined.
func LossBreakdown(doc, baseline *document.Document, gt *document.GroundTruth, opts Options) *Breakdown {
	ref := align.Normalize(gt.Text, opts.Align)
	if ref == "" {
		return nil
	}
	coverage := func(d *document.Document, keep func(document.TextRegion) bool) Ratio {
		ext := align.Normalize(documentText(d, keep), opts.Align)
		a := align.AlignNormalized(ext, ref, opts.Align.Mode)
		return Fraction(a.OverlapChars, a.ReferenceChars)
	}

	scored := coverage(doc, opts.Keep)
	raw := coverage(doc, keepAll)
	b := &Breakdown{
		Classification: raw.Sub(scored),
		Extraction:     raw.Complement(),
	}
	if baseline != nil {
		base := coverage(baseline, keepAll)
		b.Baseline = baseline.Config.String()
		b.Normalization = base.Sub(raw)
		b.Extraction = base.Complement()
	}
	return b
}
