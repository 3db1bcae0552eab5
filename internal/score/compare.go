package score

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/align"
	"github.com/MeKo-Tech/ocreval/internal/document"
)

// DefaultRegionMatchIoU is the IoU at which two regions count as the same region.
const DefaultRegionMatchIoU = 0.5

// Options controls scoring.
type Options struct {
	Align align.Options
	// ExcludeLabels are dropped from the scored text; their loss is reported
	// as classification loss in the breakdown.
	ExcludeLabels []document.Label
	// IncludeUnclassified keeps regions without a classification in the scored text.
	IncludeUnclassified bool
	RegionMatchIoU      float64
}

// DefaultOptions returns scoring defaults.
func DefaultOptions() Options {
	return Options{
		Align:               align.DefaultOptions(),
		IncludeUnclassified: true,
		RegionMatchIoU:      DefaultRegionMatchIoU,
	}
}

// Keep reports whether a region contributes to the scored text.
func (o Options) Keep(r document.TextRegion) bool {
	if r.Label == document.LabelUnclassified && !o.IncludeUnclassified {
		return false
	}
	return !slices.Contains(o.ExcludeLabels, r.Label)
}

func keepAll(document.TextRegion) bool { return true }

func documentText(doc *document.Document, keep func(document.TextRegion) bool) string {
	parts := make([]string, len(doc.Pages))
	for i, p := range doc.Pages {
		parts[i] = p.FilteredText(keep)
	}
	return strings.Join(parts, "\n")
}

func pageFailures(doc *document.Document) []FailureRecord {
	var out []FailureRecord
	for _, p := range doc.Pages {
		if !p.Failed() {
			continue
		}
		msg := p.Failure
		if msg == "" {
			msg = "engine produced no usable output"
		}
		out = append(out, FailureRecord{Kind: document.KindExtraction, Page: p.Index + 1, Message: msg})
	}
	if len(out) > 0 && len(out) == len(doc.Pages) {
		out = append(out, FailureRecord{Kind: document.KindExtraction, Message: "every page failed extraction"})
	}
	return out
}

// CompareGroundTruth scores an extraction against a reference transcript.
// Per-page results are produced when the transcript is page segmented with
// the same page count as the extraction.
func CompareGroundTruth(doc *document.Document, gt *document.GroundTruth, opts Options) ComparisonResult {
	res := ComparisonResult{
		DocumentID: doc.ID,
		Source:     doc.Config.String(),
		Reference:  GroundTruthSource,
		Mode:       ModeGroundTruth,
		Failures:   pageFailures(doc),
	}

	a := align.Align(documentText(doc, opts.Keep), gt.Text, opts.Align)
	res.Chars, res.Words = countsFrom(a)
	res.Coverage, res.Loss = coverageFrom(a)

	switch {
	case a.ReferenceChars == 0:
		res.Failures = append(res.Failures, FailureRecord{
			Kind:    document.KindAlignmentAmbiguity,
			Message: "reference transcript is empty",
		})
	case a.ExtractedChars == 0:
		res.Failures = append(res.Failures, FailureRecord{
			Kind:    document.KindEmptyExtraction,
			Message: "extraction produced no text",
		})
	}

	if gt.Segmented() {
		if len(gt.Pages) != len(doc.Pages) {
			msg := fmt.Sprintf("transcript has %d pages, extraction has %d; per-page scores omitted",
				len(gt.Pages), len(doc.Pages))
			res.Failures = append(res.Failures, FailureRecord{Kind: document.KindAlignmentAmbiguity, Message: msg})
		} else {
			res.Pages = make([]PageResult, len(doc.Pages))
			for i, p := range doc.Pages {
				pa := align.Align(p.FilteredText(opts.Keep), gt.Pages[i], opts.Align)
				pr := PageResult{Index: p.Index, Status: pageStatus(p)}
				pr.Chars, pr.Words = countsFrom(pa)
				pr.Coverage, pr.Loss = coverageFrom(pa)
				res.Pages[i] = pr
			}
		}
	}

	if a.ReferenceChars > 0 {
		res.Breakdown = LossBreakdown(doc, nil, gt, opts)
	}
	return res
}

// CompareEngines scores run a against run b, treating b as the reference.
// Coverage is directional; agreement is symmetric.
func CompareEngines(a, b *document.Document, opts Options) ComparisonResult {
	mode := ModeEngines
	if a.Engine == b.Engine && a.Config != b.Config {
		mode = ModeConfigurations
	}
	res := ComparisonResult{
		DocumentID: a.ID,
		Source:     a.Config.String(),
		Reference:  b.Config.String(),
		Mode:       mode,
		Failures:   pageFailures(a),
	}
	for _, f := range pageFailures(b) {
		if f.Page == 0 {
			f.Kind = document.KindAlignmentAmbiguity
		}
		f.Message = "reference run: " + f.Message
		res.Failures = append(res.Failures, f)
	}

	al := align.Align(documentText(a, opts.Keep), documentText(b, opts.Keep), opts.Align)
	res.Chars, res.Words = countsFrom(al)
	res.Coverage, res.Loss = coverageFrom(al)

	agr := agreementFrom(al)
	rc := MatchRegions(a, b, opts.RegionMatchIoU)
	agr.Region = rc.Agreement()
	res.Agreement = &agr
	res.Regions = &rc

	switch {
	case al.ReferenceChars == 0:
		res.Failures = append(res.Failures, FailureRecord{
			Kind:    document.KindAlignmentAmbiguity,
			Message: "reference run produced no text",
		})
	case al.ExtractedChars == 0:
		res.Failures = append(res.Failures, FailureRecord{
			Kind:    document.KindEmptyExtraction,
			Message: "extraction produced no text",
		})
	}

	n := min(len(a.Pages), len(b.Pages))
	if len(a.Pages) != len(b.Pages) {
		res.Failures = append(res.Failures, FailureRecord{
			Kind:    document.KindAlignmentAmbiguity,
			Message: fmt.Sprintf("runs disagree on page count: %d vs %d", len(a.Pages), len(b.Pages)),
		})
	}
	res.Pages = make([]PageResult, n)
	for i := range n {
		pa, pb := a.Pages[i], b.Pages[i]
		pal := align.Align(pa.FilteredText(opts.Keep), pb.FilteredText(opts.Keep), opts.Align)
		pr := PageResult{Index: pa.Index, Status: pageStatus(pa)}
		if pb.Failed() {
			pr.Status = document.PageFailed
		}
		pr.Chars, pr.Words = countsFrom(pal)
		pr.Coverage, pr.Loss = coverageFrom(pal)
		pagr := agreementFrom(pal)
		prc := matchPage(pa, pb, opts.RegionMatchIoU)
		pagr.Region = prc.Agreement()
		pr.Agreement = &pagr
		pr.Regions = &prc
		res.Pages[i] = pr
	}
	return res
}

func pageStatus(p document.Page) document.PageStatus {
	if p.Status == "" {
		return document.PageOK
	}
	return p.Status
}
