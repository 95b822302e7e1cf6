package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// parsedPage is the raw parse of one HTML document.
type parsedPage struct {
	title   string
	content string
	links   []string // hrefs in document order, unresolved
}

// parseHTML extracts the title, the cleaned text of the main content area,
// and every anchor href. Content comes from the first <main> or <article>
// element, falling back to <body>; script, style, and noscript subtrees are
// dropped.
func parseHTML(r io.Reader) (parsedPage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return parsedPage{}, err
	}

	var page parsedPage
	var body, mainNode *html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if page.title == "" && n.FirstChild != nil {
					page.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" && attr.Val != "" {
						page.links = append(page.links, attr.Val)
					}
				}
			case "main", "article":
				if mainNode == nil {
					mainNode = n
				}
			case "body":
				if body == nil {
					body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	root := mainNode
	if root == nil {
		root = body
	}
	if root == nil {
		root = doc
	}
	page.content = cleanText(collectText(root))
	return page, nil
}

// collectText gathers text nodes under n, skipping non-content subtrees.
func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// cleanText collapses whitespace within lines and drops blank lines.
func cleanText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
