package document

import (
	"errors"
	"fmt"
)

// FailureKind classifies a recorded failure.
type FailureKind string

const (
	KindNormalization        FailureKind = "normalization_failure"
	KindExtraction           FailureKind = "extraction_failure"
	KindAlignmentAmbiguity   FailureKind = "alignment_ambiguity"
	KindConfigurationInvalid FailureKind = "configuration_invalid"
	KindCancelled            FailureKind = "cancelled"

	// KindEmptyExtraction marks a result whose extraction produced no text
	// against a non-empty reference. Coverage is 0, not undefined.
	KindEmptyExtraction FailureKind = "empty_extraction"
)

// Sentinel errors matched with errors.Is against a *Failure.
var (
	ErrNormalization        = errors.New("normalization failure")
	ErrExtraction           = errors.New("extraction failure")
	ErrAlignmentAmbiguity   = errors.New("alignment ambiguity")
	ErrConfigurationInvalid = errors.New("configuration invalid")
	ErrCancelled            = errors.New("cancelled")
	ErrEmptyExtraction      = errors.New("empty extraction")
)

var kindSentinels = map[FailureKind]error{
	KindNormalization:        ErrNormalization,
	KindExtraction:           ErrExtraction,
	KindAlignmentAmbiguity:   ErrAlignmentAmbiguity,
	KindConfigurationInvalid: ErrConfigurationInvalid,
	KindCancelled:            ErrCancelled,
	KindEmptyExtraction:      ErrEmptyExtraction,
}

// Failure is a typed pipeline error scoped to a document and optionally a page.
// Page is zero-based; -1 means the whole document.
type Failure struct {
	Kind     FailureKind
	Document string
	Page     int
	Err      error
}

func (f *Failure) Error() string {
	scope := f.Document
	if f.Page >= 0 && scope != "" {
		scope = fmt.Sprintf("%s page %d", f.Document, f.Page+1)
	}
	msg := string(f.Kind)
	if scope != "" {
		msg += " (" + scope + ")"
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches the kind's sentinel error.
func (f *Failure) Is(target error) bool {
	s, ok := kindSentinels[f.Kind]
	return ok && s == target
}

// NewFailure builds a document-scoped failure.
func NewFailure(kind FailureKind, doc string, err error) *Failure {
	return &Failure{Kind: kind, Document: doc, Page: -1, Err: err}
}

// NewPageFailure builds a page-scoped failure.
func NewPageFailure(kind FailureKind, doc string, page int, err error) *Failure {
	return &Failure{Kind: kind, Document: doc, Page: page, Err: err}
}

// ConfigurationInvalid wraps err as a ConfigurationInvalid failure without a document scope.
func ConfigurationInvalid(format string, args ...any) *Failure {
	return NewFailure(KindConfigurationInvalid, "", fmt.Errorf(format, args...))
}

// KindOf returns the failure kind carried by err, or "" when err is not a *Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
