// Package corpus generates synthetic evaluation corpora: born-digital and
// scanned PDFs with matching transcripts, region sidecars and hOCR files.
// Every artifact is derived from the same page lines, so scores against the
// generated transcript are known in advance.
package corpus

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page geometry in points. Lines are set in 11pt Helvetica from LineTop down.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
	LeftMargin = 72.0
	LineTop    = 90.0
	LineStep   = 16.0
	FontSize   = 11.0
)

// DefaultLinesPerPage fills a page with body text.
const DefaultLinesPerPage = 16

var subjects = []string{
	"the audit", "the survey", "the rollout", "the archive", "the migration",
	"the review", "the budget", "the pilot", "the backlog", "the study",
	"the index", "the catalog", "the census", "the ledger", "the registry", "the forecast",
}

// BodyLine returns the distinct sentence printed on line l of page p (both 1-based).
func BodyLine(p, l int) string {
	return fmt.Sprintf("Page %d line %d reports steady progress on %s", p, l, subjects[(p*7+l)%len(subjects)])
}

// TableOfContents returns a heading followed by entries numbered from 1.
func TableOfContents(entries int) []string {
	title := cases.Title(language.English)
	lines := []string{"Contents"}
	for n := 1; n <= entries; n++ {
		name := title.String(strings.TrimPrefix(subjects[n%len(subjects)], "the "))
		lines = append(lines, fmt.Sprintf("%d Chapter %s %d", n, name, n*4+1))
	}
	return lines
}

// Document is a synthetic document described by the lines of each page.
type Document struct {
	ID    string
	Pages [][]string
}

// NewDocument returns a document of pages pages filled with body text.
func NewDocument(id string, pages, linesPerPage int) *Document {
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}
	d := &Document{ID: id, Pages: make([][]string, pages)}
	for p := range d.Pages {
		for l := range linesPerPage {
			d.Pages[p] = append(d.Pages[p], BodyLine(p+1, l+1))
		}
	}
	return d
}

// SetPage replaces the lines of page n (1-based).
func (d *Document) SetPage(n int, lines []string) error {
	if n < 1 || n > len(d.Pages) {
		return fmt.Errorf("document %s has no page %d", d.ID, n)
	}
	if float64(len(lines)-1)*LineStep+LineTop > PageHeight-LineTop {
		return errors.New("too many lines for one page")
	}
	d.Pages[n-1] = lines
	return nil
}

// Transcript returns the reference text with pages separated by form feeds.
func (d *Document) Transcript() string {
	pages := make([]string, len(d.Pages))
	for i, lines := range d.Pages {
		pages[i] = strings.Join(lines, "\n")
	}
	return strings.Join(pages, "\f")
}

// baseline returns the baseline of line i in points from the top.
func baseline(i int) float64 { return LineTop + float64(i)*LineStep }

// lineBox returns the box of line i holding text, estimating glyph advance
// at half the font size.
func lineBox(i int, text string) [4]float64 {
	y := baseline(i)
	return [4]float64{LeftMargin, y - FontSize, LeftMargin + 0.5*FontSize*float64(len(text)), y + 3}
}
