package convert

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\f]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText converts an HTML document into a readable plain-markup text
// form. Script and style blocks are dropped; headings, emphasis, links,
// lists, tables and code keep a lightweight textual equivalent. Character
// entities are decoded by the parser.
func HTMLToText(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		renderNode(&b, node)
	}

	text := b.String()
	text = blankLines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func renderNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Noscript:
			return
		case atom.Br:
			b.WriteString("\n")
			return
		case atom.Hr:
			b.WriteString("\n---\n")
			return
		case atom.A:
			renderLink(b, n)
			return
		case atom.Strong, atom.B:
			b.WriteString("**")
			renderChildren(b, n)
			b.WriteString("**")
			return
		case atom.Em, atom.I:
			b.WriteString("*")
			renderChildren(b, n)
			b.WriteString("*")
			return
		case atom.Code:
			b.WriteString("`")
			renderChildren(b, n)
			b.WriteString("`")
			return
		case atom.Pre:
			b.WriteString("\n")
			renderChildren(b, n)
			b.WriteString("\n")
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			level := int(n.Data[1] - '0')
			b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
			renderChildren(b, n)
			b.WriteString("\n\n")
			return
		case atom.Li:
			b.WriteString("\n- ")
			renderChildren(b, n)
			return
		case atom.Td, atom.Th:
			renderChildren(b, n)
			b.WriteString("\t")
			return
		case atom.Tr:
			b.WriteString("\n")
			renderChildren(b, n)
			return
		case atom.P, atom.Div, atom.Section, atom.Article, atom.Header,
			atom.Footer, atom.Table, atom.Ul, atom.Ol, atom.Blockquote:
			b.WriteString("\n")
			renderChildren(b, n)
			b.WriteString("\n")
			return
		}
	}

	renderChildren(b, n)
}

func renderChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c)
	}
}

// renderLink writes a link as [text](href), or just the text when the href
// adds nothing
func renderLink(b *strings.Builder, n *html.Node) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}

	var inner strings.Builder
	renderChildren(&inner, n)
	text := strings.TrimSpace(inner.String())

	if href == "" || href == text || strings.HasPrefix(href, "#") {
		b.WriteString(text)
		return
	}
	b.WriteString("[" + text + "](" + href + ")")
}
