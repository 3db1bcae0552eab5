package score

import (
	"testing"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id string, char Ratio, pages ...Ratio) ComparisonResult {
	r := ComparisonResult{DocumentID: id, Coverage: RatioPair{Char: char, Word: char}}
	for i, p := range pages {
		r.Pages = append(r.Pages, PageResult{Index: i, Coverage: RatioPair{Char: p}})
	}
	return r
}

func TestDistributionAdd(t *testing.T) {
	var d Distribution
	d = d.Add("a", Defined(0.5))
	d = d.Add("b", Defined(1))
	d = d.Add("c", Undefined())
	d = d.Add("d", Defined(0))

	assert.Equal(t, 3, d.Count)
	assert.Equal(t, 1, d.Undefined)
	assert.InDelta(t, 0.5, d.Mean, 1e-9)
	assert.Equal(t, 0.0, d.Min)
	assert.Equal(t, "d", d.MinID)
	assert.Equal(t, 1.0, d.Max)
	assert.Equal(t, "b", d.MaxID)
}

func TestAggregateResults(t *testing.T) {
	results := []ComparisonResult{
		result("good", Defined(0.98), Defined(1), Defined(0.96)),
		result("toc", Defined(0.91), Defined(0.99), Defined(0.02), Defined(0.98)),
		result("blank-gt", Undefined()),
		FailedResult("broken", "x", GroundTruthSource, ModeGroundTruth,
			document.NewFailure(document.KindNormalization, "broken", assert.AnError)),
	}
	results[2].Failures = []FailureRecord{{Kind: document.KindAlignmentAmbiguity}}

	agg := AggregateResults(results)
	assert.Equal(t, 4, agg.Documents)
	assert.Equal(t, 1, agg.FailedDocuments)
	assert.Equal(t, 3, agg.CharCoverage.Count)
	assert.Equal(t, 1, agg.CharCoverage.Undefined)
	assert.Equal(t, "broken", agg.CharCoverage.MinID)
	assert.Equal(t, "good", agg.CharCoverage.MaxID)
	assert.InDelta(t, (0.98+0.91)/3, agg.CharCoverage.Mean, 1e-9)

	assert.Equal(t, 5, agg.PageCoverage.Count)
	assert.Equal(t, "toc#p2", agg.PageCoverage.MinID)
	require.Len(t, agg.WorstPages, 5)
	assert.Equal(t, "toc#p2", agg.WorstPages[0].ID())

	assert.Equal(t, 1, agg.Failures[document.KindNormalization])
	assert.Equal(t, 1, agg.Failures[document.KindAlignmentAmbiguity])
	assert.Nil(t, agg.RegionAgreement)

	// inputs are left untouched
	assert.Len(t, results[1].Pages, 3)
}

func TestAggregateResults_Agreement(t *testing.T) {
	a := result("a", Defined(1))
	a.Agreement = &Agreement{Char: Defined(1), Word: Defined(1), Region: Defined(0.4)}
	b := result("b", Defined(1))
	b.Agreement = &Agreement{Char: Defined(0.9), Word: Defined(0.8), Region: Undefined()}

	agg := AggregateResults([]ComparisonResult{a, b})
	require.NotNil(t, agg.RegionAgreement)
	assert.Equal(t, 1, agg.RegionAgreement.Count)
	assert.Equal(t, 1, agg.RegionAgreement.Undefined)
	assert.InDelta(t, 0.95, agg.CharAgreement.Mean, 1e-9)
}

func TestAggregateResults_Empty(t *testing.T) {
	agg := AggregateResults(nil)
	assert.Zero(t, agg.Documents)
	assert.Zero(t, agg.CharCoverage.Count)
	assert.Empty(t, agg.WorstPages)
}
