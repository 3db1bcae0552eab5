package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/ocreval/internal/document"
	"github.com/MeKo-Tech/ocreval/internal/score"
	"gopkg.in/yaml.v3"
)

// ToJSON serializes the report to pretty JSON. Undefined ratios are null.
func ToJSON(r *Report) (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

// ToYAML serializes the report to YAML.
func ToYAML(r *Report) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var csvHeader = []string{
	"document_id", "page", "source", "reference", "mode", "status",
	"chars_extracted", "chars_reference", "chars_overlap",
	"char_coverage", "char_loss", "word_coverage", "word_loss",
	"char_agreement", "word_agreement", "region_agreement",
	"regions_source", "regions_reference", "regions_matched",
	"loss_normalization", "loss_extraction", "loss_classification",
	"failures",
}

// ToCSV writes one row per document followed by one row per page of it.
func ToCSV(r *Report) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, d := range r.Documents {
		res := d.Result
		status := "ok"
		if res.Failed() {
			status = "failed"
		}
		row := []string{res.DocumentID, "", res.Source, res.Reference, string(res.Mode), status}
		row = append(row, countCells(res.Chars)...)
		row = append(row, ratioCell(res.Coverage.Char), ratioCell(res.Loss.Char),
			ratioCell(res.Coverage.Word), ratioCell(res.Loss.Word))
		row = append(row, agreementCells(res.Agreement)...)
		row = append(row, regionCells(res.Regions)...)
		row = append(row, breakdownCells(res.Breakdown)...)
		row = append(row, failureCell(res.Failures, 0))
		if err := w.Write(row); err != nil {
			return "", err
		}

		for _, p := range res.Pages {
			row := []string{res.DocumentID, strconv.Itoa(p.Index + 1), res.Source, res.Reference, string(res.Mode), string(p.Status)}
			row = append(row, countCells(p.Chars)...)
			row = append(row, ratioCell(p.Coverage.Char), ratioCell(p.Loss.Char),
				ratioCell(p.Coverage.Word), ratioCell(p.Loss.Word))
			row = append(row, agreementCells(p.Agreement)...)
			row = append(row, regionCells(p.Regions)...)
			row = append(row, "", "", "")
			row = append(row, failureCell(res.Failures, p.Index+1))
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ratioCell(r score.Ratio) string {
	if !r.Defined {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'f', 4, 64)
}

func countCells(c score.Counts) []string {
	return []string{strconv.Itoa(c.Extracted), strconv.Itoa(c.Reference), strconv.Itoa(c.Overlap)}
}

func agreementCells(a *score.Agreement) []string {
	if a == nil {
		return []string{"", "", ""}
	}
	return []string{ratioCell(a.Char), ratioCell(a.Word), ratioCell(a.Region)}
}

func regionCells(rc *score.RegionCounts) []string {
	if rc == nil {
		return []string{"", "", ""}
	}
	return []string{strconv.Itoa(rc.Source), strconv.Itoa(rc.Reference), strconv.Itoa(rc.Matched)}
}

func breakdownCells(b *score.Breakdown) []string {
	if b == nil {
		return []string{"", "", ""}
	}
	return []string{ratioCell(b.Normalization), ratioCell(b.Extraction), ratioCell(b.Classification)}
}

// failureCell joins the failure kinds recorded for page (1-based; 0 is the document).
func failureCell(fs []score.FailureRecord, page int) string {
	var kinds []string
	for _, f := range fs {
		if f.Page == page {
			kinds = append(kinds, string(f.Kind))
		}
	}
	return strings.Join(kinds, ";")
}

// ToText renders a human readable summary: the distributions first, then the
// worst pages and failures, then one line per document.
func ToText(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", r.RunID, r.Mode)
	fmt.Fprintf(&b, "Primary:   %s\n", r.Primary)
	if ref := r.Reference(); ref != "" {
		fmt.Fprintf(&b, "Reference: %s\n", ref)
	}
	if r.Baseline != nil {
		fmt.Fprintf(&b, "Baseline:  %s\n", r.Baseline)
	}
	agg := r.Aggregate
	fmt.Fprintf(&b, "Documents: %d (%d failed)\n\n", agg.Documents, agg.FailedDocuments)

	writeDist(&b, "char coverage", agg.CharCoverage)
	writeDist(&b, "word coverage", agg.WordCoverage)
	if agg.PageCoverage.Count > 0 || agg.PageCoverage.Undefined > 0 {
		writeDist(&b, "page coverage", agg.PageCoverage)
	}
	if agg.CharAgreement != nil {
		writeDist(&b, "char agreement", *agg.CharAgreement)
		writeDist(&b, "word agreement", *agg.WordAgreement)
		writeDist(&b, "region agreement", *agg.RegionAgreement)
	}

	if len(agg.WorstPages) > 0 {
		b.WriteString("\nWorst pages:\n")
		for _, p := range agg.WorstPages {
			fmt.Fprintf(&b, "  %-30s %s\n", p.ID(), score.Defined(p.Coverage))
		}
	}
	if len(agg.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		kinds := make([]document.FailureKind, 0, len(agg.Failures))
		for k := range agg.Failures {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "  %-24s %d\n", k, agg.Failures[k])
		}
	}

	b.WriteString("\nDocuments:\n")
	for _, d := range r.Documents {
		res := d.Result
		fmt.Fprintf(&b, "  %-30s char %-8s word %-8s", res.DocumentID, res.Coverage.Char, res.Coverage.Word)
		if res.Agreement != nil {
			fmt.Fprintf(&b, " agree %-8s regions %-8s", res.Agreement.Char, res.Agreement.Region)
		}
		if res.Breakdown != nil && res.Breakdown.Normalization.Defined {
			fmt.Fprintf(&b, " norm-loss %s", res.Breakdown.Normalization)
		}
		for _, f := range res.Failures {
			if f.Page > 0 {
				fmt.Fprintf(&b, " [%s p%d]", f.Kind, f.Page)
			} else {
				fmt.Fprintf(&b, " [%s]", f.Kind)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeDist(b *strings.Builder, name string, d score.Distribution) {
	if d.Count == 0 {
		fmt.Fprintf(b, "%-17s n/a (%d undefined)\n", name+":", d.Undefined)
		return
	}
	fmt.Fprintf(b, "%-17s min %s (%s)  mean %s  max %s (%s)  n=%d",
		name+":", score.Defined(d.Min), d.MinID, score.Defined(d.Mean), score.Defined(d.Max), d.MaxID, d.Count)
	if d.Undefined > 0 {
		fmt.Fprintf(b, "  undefined=%d", d.Undefined)
	}
	b.WriteString("\n")
}
