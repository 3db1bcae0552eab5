package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MeKo-Tech/ocreval/internal/document"
)

var (
	listItemRe = regexp.MustCompile(`^(?:[\x{2022}\x{25AA}\x{25CF}\x{00B7}\x{2013}\x{2014}*+-]\s+|\(?(?:\d{1,3}|[a-zA-Z]|[ivxlcIVXLC]{1,5})[.)]\s+)`)
	captionRe  = regexp.MustCompile(`(?i)^(?:figure|fig\.|table|tab\.|abb\.|abbildung|tabelle|plate|chart)\s*\d+`)
	sectionRe  = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXLC]+\.|chapter\s+\d+|kapitel\s+\d+)\s+\p{L}`)
	footnoteRe = regexp.MustCompile(`^(?:\d{1,3}|[*\x{2020}\x{2021}])\s*\p{L}`)
	pageNumRe  = regexp.MustCompile(`^(?:page\s+|seite\s+|-\s*)?\d{1,4}(?:\s*(?:/|of|von)\s*\d{1,4})?(?:\s*-)?$`)
)

const (
	marginBand     = 0.07
	footnoteBand   = 0.25
	titleBand      = 0.35
	shortLineRunes = 80
)

// pageLayout holds the per-page statistics the classifier compares against.
type pageLayout struct {
	width, height float64
	bodyHeight    float64
	first         bool
}

func newPageLayout(p *document.Page) pageLayout {
	heights := make([]float64, 0, len(p.Regions))
	for _, r := range p.Regions {
		if h := r.BBox.Height(); h > 0 && strings.TrimSpace(r.Text) != "" {
			heights = append(heights, h/float64(max(1, lineCount(r.Text))))
		}
	}
	l := pageLayout{width: p.Width, height: p.Height, first: p.Index == 0}
	if len(heights) > 0 {
		sort.Float64s(heights)
		l.bodyHeight = heights[len(heights)/2]
	}
	return l
}

func lineCount(s string) int { return strings.Count(strings.TrimSpace(s), "\n") + 1 }

// ClassifyPage labels every region of p that has no classification yet.
func ClassifyPage(p *document.Page) {
	layout := newPageLayout(p)
	for i := range p.Regions {
		r := &p.Regions[i]
		if r.Label == "" || r.Label == document.LabelUnclassified {
			r.Label = layout.classify(*r)
		}
	}
}

// Classify labels a single region using position, size and text heuristics
// relative to the page it sits on.
func Classify(r document.TextRegion, p *document.Page) document.Label {
	return newPageLayout(p).classify(r)
}

func (l pageLayout) classify(r document.TextRegion) document.Label {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return document.LabelUnclassified
	}
	runes := utf8.RuneCountInString(text)
	short := runes <= shortLineRunes && lineCount(text) == 1
	lineHeight := r.BBox.Height() / float64(lineCount(text))

	var top, bottom float64 = 0.5, 0.5
	if l.height > 0 {
		top = r.BBox.Y0 / l.height
		bottom = r.BBox.Y1 / l.height
	}
	large := l.bodyHeight > 0 && lineHeight >= 1.2*l.bodyHeight
	huge := l.bodyHeight > 0 && lineHeight >= 1.6*l.bodyHeight
	small := l.bodyHeight > 0 && lineHeight <= 0.85*l.bodyHeight

	switch {
	case short && bottom <= marginBand:
		return document.LabelPageHeader
	case short && top >= 1-marginBand:
		return document.LabelPageFooter
	case short && pageNumRe.MatchString(strings.ToLower(text)) && (top < 0.15 || top > 0.85):
		if top < 0.5 {
			return document.LabelPageHeader
		}
		return document.LabelPageFooter
	case captionRe.MatchString(text):
		return document.LabelCaption
	case top >= 1-footnoteBand && footnoteRe.MatchString(text) && (small || l.bodyHeight == 0):
		return document.LabelFootnote
	case listItemRe.MatchString(text) && !(short && sectionRe.MatchString(text) && !endsSentence(text)):
		return document.LabelListItem
	case huge && short && l.first && top <= titleBand:
		return document.LabelTitle
	case large && short:
		return document.LabelSectionHeader
	case short && sectionRe.MatchString(text) && !endsSentence(text):
		return document.LabelSectionHeader
	case short && runes >= 3 && isUpper(text) && !endsSentence(text):
		return document.LabelSectionHeader
	default:
		return document.LabelBodyText
	}
}

func endsSentence(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '.' || r == ',' || r == ';' || r == ':'
}

func isUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}
