package score

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MeKo-Tech/ocreval/internal/align"
	"github.com/MeKo-Tech/ocreval/internal/document"
)

// Mode is the comparison performed by a run.
type Mode string

const (
	ModeGroundTruth    Mode = "ground_truth"
	ModeEngines        Mode = "engines"
	ModeConfigurations Mode = "configurations"
)

// ParseMode validates a comparison mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGroundTruth, ModeEngines, ModeConfigurations:
		return Mode(s), nil
	case "":
		return ModeGroundTruth, nil
	}
	return "", fmt.Errorf("unknown comparison mode %q", s)
}

// GroundTruthSource is the source id used for reference transcripts.
const GroundTruthSource = "ground-truth"

// Counts holds token counts for one granularity.
type Counts struct {
	Extracted int `json:"extracted" yaml:"extracted"`
	Reference int `json:"reference" yaml:"reference"`
	Overlap   int `json:"overlap" yaml:"overlap"`
	Union     int `json:"union" yaml:"union"`
}

// RatioPair carries a character and a word variant of a metric.
type RatioPair struct {
	Char Ratio `json:"char" yaml:"char"`
	Word Ratio `json:"word" yaml:"word"`
}

// Agreement is reported for run-vs-run comparisons.
type Agreement struct {
	Char   Ratio `json:"char" yaml:"char"`
	Word   Ratio `json:"word" yaml:"word"`
	Region Ratio `json:"region" yaml:"region"`
}

// RegionCounts summarizes spatial region matching between two runs.
type RegionCounts struct {
	Source    int `json:"source" yaml:"source"`
	Reference int `json:"reference" yaml:"reference"`
	Matched   int `json:"matched" yaml:"matched"`
}

// FailureRecord is a failure as written to a report. Page is 1-based; 0 means the whole document.
type FailureRecord struct {
	Kind    document.FailureKind `json:"kind" yaml:"kind"`
	Page    int                  `json:"page,omitempty" yaml:"page,omitempty"`
	Message string               `json:"message" yaml:"message"`
}

// RecordFailure converts an error into a FailureRecord, defaulting the kind to fallback.
func RecordFailure(err error, fallback document.FailureKind) FailureRecord {
	rec := FailureRecord{Kind: fallback, Message: err.Error()}
	var f *document.Failure
	if errors.As(err, &f) {
		rec.Kind = f.Kind
		if f.Page >= 0 {
			rec.Page = f.Page + 1
		}
		if f.Err != nil {
			rec.Message = f.Err.Error()
		}
	}
	return rec
}

// PageResult is the comparison for one page.
type PageResult struct {
	Index     int                 `json:"index" yaml:"index"`
	Status    document.PageStatus `json:"status" yaml:"status"`
	Chars     Counts              `json:"chars" yaml:"chars"`
	Words     Counts              `json:"words" yaml:"words"`
	Coverage  RatioPair           `json:"coverage" yaml:"coverage"`
	Loss      RatioPair           `json:"loss" yaml:"loss"`
	Agreement *Agreement          `json:"agreement,omitempty" yaml:"agreement,omitempty"`
	Regions   *RegionCounts       `json:"regions,omitempty" yaml:"regions,omitempty"`
}

// ComparisonResult is the immutable outcome of comparing one extraction with a reference.
type ComparisonResult struct {
	DocumentID string          `json:"document_id" yaml:"document_id"`
	Source     string          `json:"source" yaml:"source"`
	Reference  string          `json:"reference" yaml:"reference"`
	Mode       Mode            `json:"mode" yaml:"mode"`
	Chars      Counts          `json:"chars" yaml:"chars"`
	Words      Counts          `json:"words" yaml:"words"`
	Coverage   RatioPair       `json:"coverage" yaml:"coverage"`
	Loss       RatioPair       `json:"loss" yaml:"loss"`
	Agreement  *Agreement      `json:"agreement,omitempty" yaml:"agreement,omitempty"`
	Regions    *RegionCounts   `json:"regions,omitempty" yaml:"regions,omitempty"`
	Breakdown  *Breakdown      `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
	Pages      []PageResult    `json:"pages,omitempty" yaml:"pages,omitempty"`
	Failures   []FailureRecord `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// HasFailure reports whether a failure of the given kind was recorded.
func (r *ComparisonResult) HasFailure(kind document.FailureKind) bool {
	return slices.ContainsFunc(r.Failures, func(f FailureRecord) bool { return f.Kind == kind })
}

// Failed reports whether the document could not be processed at all: a
// normalization, cancellation or configuration failure, or an extraction
// failure of the whole document.
func (r *ComparisonResult) Failed() bool {
	return slices.ContainsFunc(r.Failures, func(f FailureRecord) bool {
		switch f.Kind {
		case document.KindNormalization, document.KindCancelled, document.KindConfigurationInvalid:
			return true
		case document.KindExtraction:
			return f.Page == 0
		}
		return false
	})
}

// FailedResult builds the result for a document whose run failed before scoring.
// Processing failures score coverage 0 so they stay visible in aggregates.
// Cancelled documents were never evaluated and a missing or malformed
// reference leaves nothing to measure; both stay undefined.
func FailedResult(docID, source, reference string, mode Mode, err error) ComparisonResult {
	rec := RecordFailure(err, document.KindNormalization)
	cov := RatioPair{Char: Defined(0), Word: Defined(0)}
	if rec.Kind == document.KindCancelled || rec.Kind == document.KindAlignmentAmbiguity {
		cov = RatioPair{}
	}
	return ComparisonResult{
		DocumentID: docID,
		Source:     source,
		Reference:  reference,
		Mode:       mode,
		Coverage:   cov,
		Loss:       RatioPair{Char: cov.Char.Complement(), Word: cov.Word.Complement()},
		Failures:   []FailureRecord{rec},
	}
}

func countsFrom(a align.Alignment) (chars, words Counts) {
	chars = Counts{Extracted: a.ExtractedChars, Reference: a.ReferenceChars, Overlap: a.OverlapChars, Union: a.UnionChars()}
	words = Counts{Extracted: a.ExtractedWords, Reference: a.ReferenceWords, Overlap: a.OverlapWords, Union: a.UnionWords()}
	return chars, words
}

func coverageFrom(a align.Alignment) (cov, loss RatioPair) {
	cov = RatioPair{
		Char: Fraction(a.OverlapChars, a.ReferenceChars),
		Word: Fraction(a.OverlapWords, a.ReferenceWords),
	}
	loss = RatioPair{Char: cov.Char.Complement(), Word: cov.Word.Complement()}
	return cov, loss
}

func agreementFrom(a align.Alignment) Agreement {
	return Agreement{
		Char: Fraction(a.OverlapChars, a.UnionChars()),
		Word: Fraction(a.OverlapWords, a.UnionWords()),
	}
}
