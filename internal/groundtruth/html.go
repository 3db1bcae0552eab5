package groundtruth

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Figcaption: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Dt: true, atom.Dd: true,
}

// loadHTML extracts visible text. Pages are split at <hr class="page-break">,
// a "<!-- page -->" comment, or any element whose style requests a page break.
func loadHTML(data []byte) ([]string, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var pages []string
	var cur strings.Builder
	flush := func() {
		pages = append(pages, strings.TrimSpace(cur.String()))
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.CommentNode:
			if pageCommentRe.MatchString("<!--" + n.Data + "-->") {
				flush()
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Noscript:
				return
			}
		}

		before, after := pageBreaks(n)
		if before {
			flush()
			if n.DataAtom == atom.Hr {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			cur.WriteByte('\n')
		}
		if after {
			flush()
		}
	}
	walk(root)
	flush()
	return pages, nil
}

// pageBreaks reports whether n requests a page break before or after itself.
func pageBreaks(n *html.Node) (before, after bool) {
	if n.Type != html.ElementNode {
		return false, false
	}
	for _, cls := range strings.Fields(attr(n, "class")) {
		if cls == "page-break" || cls == "pagebreak" {
			before = true
		}
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	if strings.Contains(style, "page-break-before:always") || strings.Contains(style, "break-before:page") {
		before = true
	}
	if strings.Contains(style, "page-break-after:always") || strings.Contains(style, "break-after:page") {
		after = true
	}
	return before, after
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
