package groundtruth

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// loadDOCX reads paragraph text. Explicit page breaks split pages.
func loadDOCX(data []byte) ([]string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var pages []string
	var cur strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				switch v := rc.(type) {
				case *docx.Text:
					cur.WriteString(v.Text)
				case *docx.Tab:
					cur.WriteByte('\t')
				case *docx.BarterRabbet:
					if v.Type == "page" {
						pages = append(pages, strings.TrimSpace(cur.String()))
						cur.Reset()
					} else {
						cur.WriteByte('\n')
					}
				}
			}
		}
		cur.WriteByte('\n')
	}
	pages = append(pages, strings.TrimSpace(cur.String()))
	return pages, nil
}
