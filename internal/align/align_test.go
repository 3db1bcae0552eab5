package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeBag, m)
	m, err = ParseMode("Sequence")
	require.NoError(t, err)
	assert.Equal(t, ModeSequence, m)
	_, err = ParseMode("fuzzy")
	assert.Error(t, err)
}

func TestAlign_Identity(t *testing.T) {
	text := "The quick brown fox\njumps over the lazy dog."
	for _, mode := range []Mode{ModeBag, ModeSequence} {
		t.Run(string(mode), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Mode = mode
			a := Align(text, text, opts)
			assert.Equal(t, a.ReferenceChars, a.OverlapChars)
			assert.Equal(t, a.ReferenceWords, a.OverlapWords)
			assert.Equal(t, a.ExtractedChars, a.ReferenceChars)
			assert.Equal(t, 9, a.ReferenceWords)
			assert.Equal(t, a.ReferenceChars, a.UnionChars())
			assert.Equal(t, a.ReferenceWords, a.UnionWords())
		})
	}
}

func TestAlign_HyphenationIsNoise(t *testing.T) {
	ocr := "The recog-\nnition rate im-\nproved."
	ref := "The recognition rate improved."
	a := Align(ocr, ref, DefaultOptions())
	assert.Equal(t, a.ReferenceChars, a.OverlapChars)
	assert.Equal(t, a.ReferenceWords, a.OverlapWords)

	opts := DefaultOptions()
	opts.RejoinHyphenation = false
	b := Align(ocr, ref, opts)
	assert.Less(t, b.OverlapWords, b.ReferenceWords)
}

func TestAlign_BagVsSequence(t *testing.T) {
	bag := Align("cat the", "the cat", Options{Mode: ModeBag})
	assert.Equal(t, 2, bag.OverlapWords)
	assert.Equal(t, 6, bag.OverlapChars)

	seq := Align("cat the", "the cat", Options{Mode: ModeSequence})
	assert.Equal(t, 1, seq.OverlapWords)
	assert.Equal(t, 3, seq.OverlapChars)
}

func TestAlign_PartialAndEmpty(t *testing.T) {
	a := Align("alpha beta", "alpha beta gamma delta", DefaultOptions())
	assert.Equal(t, 2, a.OverlapWords)
	assert.Equal(t, 4, a.ReferenceWords)
	assert.Equal(t, 9, a.OverlapChars)
	assert.Equal(t, 19, a.ReferenceChars)

	empty := Align("", "alpha", DefaultOptions())
	assert.Zero(t, empty.OverlapChars)
	assert.Zero(t, empty.ExtractedChars)
	assert.Equal(t, 5, empty.ReferenceChars)

	noRef := Align("alpha", "   ", DefaultOptions())
	assert.Zero(t, noRef.ReferenceChars)
	assert.Zero(t, noRef.OverlapChars)
}

func TestAlign_UnrelatedTextHasLowCharCoverage(t *testing.T) {
	ref := "The committee approved the annual budget after a long debate about priorities."
	ext := "Revenue increased in every region while costs stayed flat for the quarter."
	for _, mode := range []Mode{ModeBag, ModeSequence} {
		t.Run(string(mode), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Mode = mode
			a := Align(ext, ref, opts)
			assert.Less(t, float64(a.OverlapChars)/float64(a.ReferenceChars), 0.1)
		})
	}
}

func TestAlign_BagCreditsCharsOfMatchedWords(t *testing.T) {
	a := Align("quarterly resu1ts", "quarterly results", DefaultOptions())
	assert.Equal(t, 1, a.OverlapWords)
	assert.Equal(t, 9, a.OverlapChars)
	assert.Equal(t, 16, a.ReferenceChars)
}

func TestAlign_BagCountsMultiplicity(t *testing.T) {
	a := Align("a a a", "a", Options{Mode: ModeBag})
	assert.Equal(t, 1, a.OverlapWords)
	assert.Equal(t, 3, a.ExtractedWords)
	assert.Equal(t, 3, a.UnionWords())
}

func TestAlignmentAdd(t *testing.T) {
	x := Alignment{ExtractedChars: 1, ReferenceChars: 2, OverlapChars: 1, ExtractedWords: 1, ReferenceWords: 1, OverlapWords: 1}
	y := x.Add(x)
	assert.Equal(t, Alignment{ExtractedChars: 2, ReferenceChars: 4, OverlapChars: 2, ExtractedWords: 2, ReferenceWords: 2, OverlapWords: 2}, y)
}
