package align

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Mode selects how overlap between two token streams is counted.
type Mode string

const (
	// ModeBag counts the multiset intersection of words, ignoring order.
	ModeBag Mode = "bag"
	// ModeSequence counts tokens inside order-preserving matching blocks.
	ModeSequence Mode = "sequence"
)

// ParseMode validates a mode name; "" selects ModeBag.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBag:
		return ModeBag, nil
	case ModeSequence:
		return ModeSequence, nil
	default:
		return "", fmt.Errorf("unknown alignment mode %q", s)
	}
}

// Alignment holds overlap counts between an extracted text and a reference text.
type Alignment struct {
	ExtractedChars int `json:"extracted_chars"`
	ReferenceChars int `json:"reference_chars"`
	OverlapChars   int `json:"overlap_chars"`
	ExtractedWords int `json:"extracted_words"`
	ReferenceWords int `json:"reference_words"`
	OverlapWords   int `json:"overlap_words"`
}

// UnionChars returns |extracted ∪ reference| at character level.
func (a Alignment) UnionChars() int { return a.ExtractedChars + a.ReferenceChars - a.OverlapChars }

// UnionWords returns |extracted ∪ reference| at word level.
func (a Alignment) UnionWords() int { return a.ExtractedWords + a.ReferenceWords - a.OverlapWords }

// Add accumulates counts from o.
func (a Alignment) Add(o Alignment) Alignment {
	return Alignment{
		ExtractedChars: a.ExtractedChars + o.ExtractedChars,
		ReferenceChars: a.ReferenceChars + o.ReferenceChars,
		OverlapChars:   a.OverlapChars + o.OverlapChars,
		ExtractedWords: a.ExtractedWords + o.ExtractedWords,
		ReferenceWords: a.ReferenceWords + o.ReferenceWords,
		OverlapWords:   a.OverlapWords + o.OverlapWords,
	}
}

// Align normalizes both texts and counts overlapping characters and words.
func Align(extracted, reference string, opts Options) Alignment {
	ext := Normalize(extracted, opts)
	ref := Normalize(reference, opts)
	return AlignNormalized(ext, ref, opts.Mode)
}

// AlignNormalized counts overlap for texts already passed through Normalize.
func AlignNormalized(extracted, reference string, mode Mode) Alignment {
	extChars, extWords := Tokens(extracted)
	refChars, refWords := Tokens(reference)

	a := Alignment{
		ExtractedChars: len(extChars),
		ReferenceChars: len(refChars),
		ExtractedWords: len(extWords),
		ReferenceWords: len(refWords),
	}
	if len(extWords) == 0 || len(refWords) == 0 {
		return a
	}

	switch mode {
	case ModeSequence:
		a.OverlapWords, a.OverlapChars = sequenceOverlap(extWords, refWords)
	default:
		a.OverlapWords, a.OverlapChars = bagOverlap(extWords, refWords)
	}
	return a
}

// bagOverlap returns the size of the multiset intersection of the word
// streams a and b. Characters are credited only inside matched words, so
// unrelated text sharing an alphabet scores no character overlap.
func bagOverlap(a, b []string) (words, chars int) {
	counts := make(map[string]int, len(b))
	for _, w := range b {
		counts[w]++
	}
	for _, w := range a {
		if counts[w] > 0 {
			counts[w]--
			words++
			chars += utf8.RuneCountInString(w)
		}
	}
	return words, chars
}

// sequenceOverlap aligns word streams in order. Characters are credited for the
// words inside matching blocks, which keeps the matcher at word granularity.
func sequenceOverlap(a, b []string) (words, chars int) {
	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	for _, blk := range m.GetMatchingBlocks() {
		words += blk.Size
		for _, w := range a[blk.A : blk.A+blk.Size] {
			chars += utf8.RuneCountInString(w)
		}
	}
	return words, chars
}
