package score

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/align"
	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genPageText generates page text from a small vocabulary so overlaps are common.
func genPageText() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf(
		"the", "court", "held", "that", "Section", "42", "was", "void", "\n", "recog-\nnition", "§",
	), reflect.TypeOf("")).Map(func(words []string) string {
		return strings.Join(words, " ")
	})
}

func approxOne(r, l Ratio) bool {
	return r.Defined && l.Defined && math.Abs(r.Value+l.Value-1) < 1e-9
}

func TestScore_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	for _, mode := range []align.Mode{align.ModeBag, align.ModeSequence} {
		opts := DefaultOptions()
		opts.Align.Mode = mode

		properties.Property("coverage + loss == 1 for defined results ("+string(mode)+")", prop.ForAll(
			func(ext, ref string) bool {
				res := CompareGroundTruth(docFromPages("d", tesseractGray300, ext), &document.GroundTruth{Text: ref}, opts)
				if !res.Coverage.Char.Defined {
					return !res.Loss.Char.Defined && res.HasFailure(document.KindAlignmentAmbiguity)
				}
				return approxOne(res.Coverage.Char, res.Loss.Char) &&
					(!res.Coverage.Word.Defined || approxOne(res.Coverage.Word, res.Loss.Word))
			},
			genPageText(), genPageText(),
		))

		properties.Property("coverage stays within [0,1] ("+string(mode)+")", prop.ForAll(
			func(ext, ref string) bool {
				res := CompareGroundTruth(docFromPages("d", tesseractGray300, ext), &document.GroundTruth{Text: ref}, opts)
				v := res.Coverage.Char
				return !v.Defined || (v.Value >= 0 && v.Value <= 1)
			},
			genPageText(), genPageText(),
		))

		properties.Property("identity has coverage 1 and loss 0 ("+string(mode)+")", prop.ForAll(
			func(text string) bool {
				res := CompareGroundTruth(docFromPages("d", tesseractGray300, text), &document.GroundTruth{Text: text}, opts)
				if !res.Coverage.Char.Defined {
					return strings.TrimSpace(text) == ""
				}
				return res.Coverage.Char.Value == 1 && res.Loss.Char.Value == 0
			},
			genPageText(),
		))

		properties.Property("breakdown sums to character loss ("+string(mode)+")", prop.ForAll(
			func(ext, ref string) bool {
				d := docFromPages("d", tesseractGray300, ext)
				if len(d.Pages[0].Regions) > 0 {
					d.Pages[0].Regions[0].Label = document.LabelPageHeader
				}
				o := opts
				o.ExcludeLabels = []document.Label{document.LabelPageHeader}
				base := docFromPages("d", native, ref)
				gt := &document.GroundTruth{Text: ref}
				res := CompareGroundTruth(d, gt, o)
				b := LossBreakdown(d, base, gt, o)
				if b == nil {
					return !res.Coverage.Char.Defined
				}
				return math.Abs(b.Total()-res.Loss.Char.Value) < 1e-9
			},
			genPageText(), genPageText(),
		))
	}

	properties.Property("same run twice agrees fully", prop.ForAll(
		func(text string) bool {
			a := docFromPages("d", tesseractGray300, text)
			b := docFromPages("d", tesseractGray300, text)
			res := CompareEngines(a, b, DefaultOptions())
			if res.Chars.Union == 0 {
				return !res.Agreement.Char.Defined
			}
			return res.Agreement.Char.Value == 1 && res.Agreement.Word.Value == 1 &&
				(!res.Agreement.Region.Defined || res.Agreement.Region.Value == 1)
		},
		genPageText(),
	))

	properties.Property("bag agreement is symmetric", prop.ForAll(
		func(x, y string) bool {
			a := docFromPages("d", tesseractGray300, x)
			b := docFromPages("d", sidecarRGB300, y)
			ab := CompareEngines(a, b, DefaultOptions())
			ba := CompareEngines(b, a, DefaultOptions())
			return ab.Agreement.Char == ba.Agreement.Char &&
				ab.Agreement.Word == ba.Agreement.Word &&
				ab.Agreement.Region == ba.Agreement.Region
		},
		genPageText(), genPageText(),
	))

	properties.Property("empty extractions stay in the aggregate minimum", prop.ForAll(
		func(texts []string) bool {
			results := []ComparisonResult{
				CompareGroundTruth(docFromPages("empty", tesseractGray300, ""), &document.GroundTruth{Text: "reference words"}, DefaultOptions()),
			}
			for _, txt := range texts {
				results = append(results, CompareGroundTruth(docFromPages("d", tesseractGray300, txt), &document.GroundTruth{Text: txt + " reference"}, DefaultOptions()))
			}
			agg := AggregateResults(results)
			return agg.CharCoverage.Min == 0 && agg.CharCoverage.Count == len(results) &&
				agg.Failures[document.KindEmptyExtraction] >= 1
		},
		gen.SliceOf(genPageText(), reflect.TypeOf("")),
	))

	properties.TestingRun(t)
}
