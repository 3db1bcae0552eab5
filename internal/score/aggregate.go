package score

import (
	"fmt"
	"sort"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

// Distribution summarizes one metric across a corpus. Undefined values are
// counted separately and never enter Min, Max or Mean.
type Distribution struct {
	Count     int     `json:"count" yaml:"count"`
	Undefined int     `json:"undefined" yaml:"undefined"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Mean      float64 `json:"mean" yaml:"mean"`
	MinID     string  `json:"min_id,omitempty" yaml:"min_id,omitempty"`
	MaxID     string  `json:"max_id,omitempty" yaml:"max_id,omitempty"`
}

// Add folds one observation into the distribution.
func (d Distribution) Add(id string, r Ratio) Distribution {
	if !r.Defined {
		d.Undefined++
		return d
	}
	v := r.Value
	if d.Count == 0 || v < d.Min {
		d.Min, d.MinID = v, id
	}
	if d.Count == 0 || v > d.Max {
		d.Max, d.MaxID = v, id
	}
	d.Mean = (d.Mean*float64(d.Count) + v) / float64(d.Count+1)
	d.Count++
	return d
}

// Aggregate is the corpus-level reduction of a set of ComparisonResults.
type Aggregate struct {
	Documents       int                          `json:"documents" yaml:"documents"`
	FailedDocuments int                          `json:"failed_documents" yaml:"failed_documents"`
	CharCoverage    Distribution                 `json:"char_coverage" yaml:"char_coverage"`
	WordCoverage    Distribution                 `json:"word_coverage" yaml:"word_coverage"`
	PageCoverage    Distribution                 `json:"page_coverage" yaml:"page_coverage"`
	CharAgreement   *Distribution                `json:"char_agreement,omitempty" yaml:"char_agreement,omitempty"`
	WordAgreement   *Distribution                `json:"word_agreement,omitempty" yaml:"word_agreement,omitempty"`
	RegionAgreement *Distribution                `json:"region_agreement,omitempty" yaml:"region_agreement,omitempty"`
	Failures        map[document.FailureKind]int `json:"failures,omitempty" yaml:"failures,omitempty"`
	WorstPages      []PageRef                    `json:"worst_pages,omitempty" yaml:"worst_pages,omitempty"`
}

// PageRef identifies a page-level observation.
type PageRef struct {
	DocumentID string  `json:"document_id" yaml:"document_id"`
	Page       int     `json:"page" yaml:"page"`
	Coverage   float64 `json:"coverage" yaml:"coverage"`
}

// ID renders the reference as document#page (1-based).
func (p PageRef) ID() string { return PageID(p.DocumentID, p.Page) }

// PageID formats a page identifier; page is 1-based.
func PageID(doc string, page int) string { return fmt.Sprintf("%s#p%d", doc, page) }

// WorstPageCount bounds Aggregate.WorstPages.
const WorstPageCount = 5

// AggregateResults reduces results into corpus distributions. Results are
// not modified, and documents whose extraction failed remain in min/max.
func AggregateResults(results []ComparisonResult) Aggregate {
	agg := Aggregate{Documents: len(results)}
	var pages []PageRef
	for i := range results {
		r := &results[i]
		if r.Failed() {
			agg.FailedDocuments++
		}
		for _, f := range r.Failures {
			if agg.Failures == nil {
				agg.Failures = make(map[document.FailureKind]int)
			}
			agg.Failures[f.Kind]++
		}
		agg.CharCoverage = agg.CharCoverage.Add(r.DocumentID, r.Coverage.Char)
		agg.WordCoverage = agg.WordCoverage.Add(r.DocumentID, r.Coverage.Word)

		for _, p := range r.Pages {
			id := PageID(r.DocumentID, p.Index+1)
			agg.PageCoverage = agg.PageCoverage.Add(id, p.Coverage.Char)
			if p.Coverage.Char.Defined {
				pages = append(pages, PageRef{DocumentID: r.DocumentID, Page: p.Index + 1, Coverage: p.Coverage.Char.Value})
			}
		}

		if r.Agreement != nil {
			agg.CharAgreement = addPtr(agg.CharAgreement, r.DocumentID, r.Agreement.Char)
			agg.WordAgreement = addPtr(agg.WordAgreement, r.DocumentID, r.Agreement.Word)
			agg.RegionAgreement = addPtr(agg.RegionAgreement, r.DocumentID, r.Agreement.Region)
		}
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Coverage < pages[j].Coverage })
	if len(pages) > WorstPageCount {
		pages = pages[:WorstPageCount]
	}
	agg.WorstPages = pages
	return agg
}

func addPtr(d *Distribution, id string, r Ratio) *Distribution {
	if d == nil {
		d = &Distribution{}
	}
	next := d.Add(id, r)
	return &next
}
