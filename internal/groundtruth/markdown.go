package groundtruth

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var pageCommentRe = regexp.MustCompile(`(?i)^<!--\s*page(\s*break)?\s*-->$`)

// loadMarkdown renders Markdown to plain text. Pages are separated by a
// form feed or by a "<!-- page -->" comment on its own line.
func loadMarkdown(data []byte) ([]string, error) {
	if bytes.Contains(data, []byte(PageSeparator)) {
		var pages []string
		for _, chunk := range bytes.Split(data, []byte(PageSeparator)) {
			p, err := markdownPages(chunk)
			if err != nil {
				return nil, err
			}
			pages = append(pages, strings.Join(p, "\n"))
		}
		return pages, nil
	}
	return markdownPages(data)
}

func markdownPages(src []byte) ([]string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var pages []string
	var cur strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.HTMLBlock:
			if entering && pageCommentRe.Match(bytes.TrimSpace(htmlBlockText(node, src))) {
				pages = append(pages, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				cur.Write(blockLines(node, src))
				cur.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				cur.Write(node.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					cur.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				cur.Write(node.Value)
			}
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		default:
			if !entering && n.Type() == ast.TypeBlock {
				cur.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	pages = append(pages, strings.TrimSpace(cur.String()))
	return pages, nil
}

func blockLines(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.Bytes()
}

func htmlBlockText(n *ast.HTMLBlock, src []byte) []byte {
	b := blockLines(n, src)
	if n.HasClosure() {
		b = append(b, n.ClosureLine.Value(src)...)
	}
	return b
}
