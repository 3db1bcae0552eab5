package align

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Options controls how extracted and reference text are brought into a comparable form.
type Options struct {
	Mode               Mode // bag (default) or sequence
	CaseFold           bool // fold case with Unicode case folding
	StripPunctuation   bool // drop punctuation runes before comparison
	RejoinHyphenation  bool // join words split by a hyphen at a line break
	ReplaceTypographic bool // map typographic quotes, dashes and spaces to ASCII
}

// DefaultOptions returns the comparison defaults: whitespace collapsed, case folded,
// hyphenation rejoined, punctuation kept.
func DefaultOptions() Options {
	return Options{
		Mode:               ModeBag,
		CaseFold:           true,
		StripPunctuation:   false,
		RejoinHyphenation:  true,
		ReplaceTypographic: true,
	}
}

// typographicReplacements maps runes that survive NFKC onto their ASCII equivalents.
var typographicReplacements = map[rune]string{
	'\u2010': "-",  // hyphen
	'\u2012': "-",  // figure dash
	'\u2013': "-",  // en dash
	'\u2014': "-",  // em dash
	'\u2015': "-",  // horizontal bar
	'\u2212': "-",  // minus sign
	'\u2018': "'",  // left single quote
	'\u2019': "'",  // right single quote
	'\u201A': "'",  // low single quote
	'\u201B': "'",  // reversed single quote
	'\u201C': "\"", // left double quote
	'\u201D': "\"", // right double quote
	'\u201E': "\"", // low double quote
	'\u00AB': "\"", // guillemets
	'\u00BB': "\"",
	'\u2039': "'",
	'\u203A': "'",
}

var (
	wsRe   = regexp.MustCompile(`[\s\p{Z}]+`)
	folder = cases.Fold()
)

// Normalize produces the comparable form of s. Applying it to its own output is a no-op.
func Normalize(s string, opts Options) string {
	if s == "" {
		return s
	}

	s = norm.NFKC.String(s)
	if opts.RejoinHyphenation {
		s = rejoinHyphenation(s)
	}
	s = removeInvisible(s)
	if opts.ReplaceTypographic {
		s = replaceTypographic(s)
	}
	if opts.StripPunctuation {
		s = stripPunctuation(s)
	}
	s = wsRe.ReplaceAllString(s, " ")
	if opts.CaseFold {
		s = upperCherokee(folder.String(s))
	}
	// removals above can leave combining sequences uncomposed
	s = norm.NFKC.String(s)
	return strings.TrimSpace(s)
}

// upperCherokee maps Cherokee small letters to their capitals. Case folding
// swaps the two forms on every pass, so a fixed form keeps Normalize idempotent.
func upperCherokee(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '\uAB70' && r <= '\uABBF':
			return r - 0xAB70 + 0x13A0
		case r >= '\u13F8' && r <= '\u13FD':
			return r - 0x13F8 + 0x13F0
		}
		return r
	}, s)
}

func isHyphen(r rune) bool {
	return r == '-' || r == '\u00AD' || r == '\u2010'
}

// rejoinHyphenation removes a hyphen (or soft hyphen) that sits between two letters
// and is followed by a line break, together with the break itself.
func rejoinHyphenation(s string) string {
	if !strings.ContainsAny(s, "\n\r") {
		return s
	}
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if isHyphen(r) && unicode.IsLetter(prev) {
			if j, ok := lineBreakThenLetter(rs, i+1); ok {
				i = j - 1
				continue
			}
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// lineBreakThenLetter scans horizontal space, exactly one line break and any
// following whitespace starting at i. It returns the index of the next letter.
func lineBreakThenLetter(rs []rune, i int) (int, bool) {
	for i < len(rs) && (rs[i] == ' ' || rs[i] == '\t') {
		i++
	}
	if i < len(rs) && rs[i] == '\r' {
		i++
	}
	if i >= len(rs) || rs[i] != '\n' {
		return 0, false
	}
	i++
	for i < len(rs) && unicode.IsSpace(rs[i]) && rs[i] != '\n' {
		i++
	}
	if i < len(rs) && unicode.IsLetter(rs[i]) {
		return i, true
	}
	return 0, false
}

// removeInvisible drops soft hyphens, zero-width characters and control
// characters other than whitespace.
func removeInvisible(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u00AD', // soft hyphen
			'\u200B', // zero width space
			'\u200C', // zero width non-joiner
			'\u200D', // zero width joiner
			'\u2060', // word joiner
			'\uFEFF': // BOM
			continue
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func replaceTypographic(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := typographicReplacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, s)
}

// Tokens splits normalized text into characters (non-space runes) and words.
func Tokens(s string) (chars []string, words []string) {
	words = strings.Fields(s)
	for _, w := range words {
		for _, r := range w {
			chars = append(chars, string(r))
		}
	}
	return chars, words
}
