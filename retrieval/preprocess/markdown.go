package preprocess

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New().Parser()

// MarkdownToText renders a Markdown article in the same shape HTMLToText
// produces: headings end with a colon, list items start with "- " and inline
// markup is dropped. Raw HTML blocks are skipped.
func MarkdownToText(md string) string {
	source := []byte(md)
	root := markdownParser.Parse(text.NewReader(source))

	var out []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if t := inlineText(node, source); t != "" {
				out = append(out, t+":")
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			var parts []string
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if c.Kind() == ast.KindParagraph || c.Kind() == ast.KindTextBlock {
					if t := inlineText(c, source); t != "" {
						parts = append(parts, t)
					}
				}
			}
			if len(parts) > 0 {
				out = append(out, "- "+strings.Join(parts, " "))
			}
		case *ast.Paragraph, *ast.TextBlock:
			if node.Parent() != nil && node.Parent().Kind() == ast.KindListItem {
				return ast.WalkSkipChildren, nil
			}
			if t := inlineText(node, source); t != "" {
				out = append(out, t)
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if t := strings.TrimSpace(string(node.Lines().Value(source))); t != "" {
				out = append(out, t)
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(out, "\n\n")
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	writeInline(&b, n, source)
	return strings.TrimSpace(b.String())
}

func writeInline(b *strings.Builder, n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.URL(source))
		case *ast.RawHTML:
		default:
			writeInline(b, c, source)
		}
	}
}

// Markdown converts a Markdown article and cleans the result.
func Markdown(raw string) string {
	return RemoveDuplicateParagraphs(CleanBasic(MarkdownToText(raw)))
}
