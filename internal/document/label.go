package document

import (
	"fmt"
	"strings"
)

// Label is the layout classification assigned to a text region.
type Label string

const (
	LabelBodyText      Label = "body_text"
	LabelSectionHeader Label = "section_header"
	LabelListItem      Label = "list_item"
	LabelTitle         Label = "title"
	LabelCaption       Label = "caption"
	LabelFootnote      Label = "footnote"
	LabelPageHeader    Label = "page_header"
	LabelPageFooter    Label = "page_footer"

	// LabelUnclassified marks raw output for which no classification was produced.
	LabelUnclassified Label = "unclassified"
)

// classifiedLabels is kept in legend order.
var classifiedLabels = []Label{
	LabelBodyText,
	LabelSectionHeader,
	LabelListItem,
	LabelTitle,
	LabelCaption,
	LabelFootnote,
	LabelPageHeader,
	LabelPageFooter,
}

// labelAliases maps names used by external engines and layout models onto the fixed set.
var labelAliases = map[string]Label{
	"text":           LabelBodyText,
	"body":           LabelBodyText,
	"paragraph":      LabelBodyText,
	"ocr_par":        LabelBodyText,
	"ocr_line":       LabelBodyText,
	"heading":        LabelSectionHeader,
	"header_section": LabelSectionHeader,
	"sectionheader":  LabelSectionHeader,
	"section-header": LabelSectionHeader,
	"ocr_header":     LabelSectionHeader,
	"list":           LabelListItem,
	"listitem":       LabelListItem,
	"list-item":      LabelListItem,
	"doc_title":      LabelTitle,
	"ocr_title":      LabelTitle,
	"figure_caption": LabelCaption,
	"table_caption":  LabelCaption,
	"ocr_caption":    LabelCaption,
	"note":           LabelFootnote,
	"header":         LabelPageHeader,
	"page-header":    LabelPageHeader,
	"pageheader":     LabelPageHeader,
	"ocr_pageheader": LabelPageHeader,
	"footer":         LabelPageFooter,
	"page-footer":    LabelPageFooter,
	"pagefooter":     LabelPageFooter,
	"ocr_footer":     LabelPageFooter,
	"ocr_pagefooter": LabelPageFooter,
	"none":           LabelUnclassified,
	"unknown":        LabelUnclassified,
	"missing":        LabelUnclassified,
	"":               LabelUnclassified,
}

// Labels returns the fixed set of classification labels in legend order.
// LabelUnclassified is not part of the set.
func Labels() []Label {
	out := make([]Label, len(classifiedLabels))
	copy(out, classifiedLabels)
	return out
}

// Valid reports whether l is one of the fixed labels or LabelUnclassified.
func (l Label) Valid() bool {
	if l == LabelUnclassified {
		return true
	}
	for _, c := range classifiedLabels {
		if l == c {
			return true
		}
	}
	return false
}

// Classified reports whether a classification was produced for the region.
func (l Label) Classified() bool {
	return l != LabelUnclassified && l.Valid()
}

// DisplayName returns the human readable legend name.
func (l Label) DisplayName() string {
	switch l {
	case LabelBodyText:
		return "body text"
	case LabelSectionHeader:
		return "section header"
	case LabelListItem:
		return "list item"
	case LabelTitle:
		return "title"
	case LabelCaption:
		return "caption"
	case LabelFootnote:
		return "footnote"
	case LabelPageHeader:
		return "page header"
	case LabelPageFooter:
		return "page footer"
	default:
		return "missing/unclassified"
	}
}

// ParseLabel converts an engine-provided label name to a Label.
// Matching is case-insensitive and accepts common aliases.
func ParseLabel(s string) (Label, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if l := Label(key); l.Valid() {
		return l, nil
	}
	if l, ok := labelAliases[key]; ok {
		return l, nil
	}
	return LabelUnclassified, fmt.Errorf("unknown label %q", s)
}
