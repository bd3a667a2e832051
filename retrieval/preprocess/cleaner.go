// Package preprocess turns raw knowledge base sources into plain passages
// suitable for embedding.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)

	typographic = strings.NewReplacer(
		"ﬁ", "fi", "ﬂ", "fl",
		"—", "-", "–", "-",
		"“", `"`, "”", `"`, "‘", "'", "’", "'",
		"•", "-", " ", " ",
	)

	// Boilerplate lines found on exported help-center pages.
	noiseMarkers = []string{
		"cookie", "privacy policy", "all rights reserved",
		"related articles", "was this article helpful", "subscribe to our newsletter",
	}
)

// CleanBasic applies NFKC normalisation, strips control characters, normalises
// typography and collapses runs of whitespace.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	b := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFKC.String(text))

	b = typographic.Replace(b)
	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")

	return strings.TrimSpace(b)
}

// HTMLToText extracts headings, paragraphs, list items, code and tables from
// an HTML article. Navigation, scripts and styles are dropped.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,nav,header,footer").Remove()

	var out []string
	doc.Find("h1,h2,h3,h4,p,li,pre,table").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1", "h2", "h3", "h4":
			out = append(out, text+":")
		case "li":
			out = append(out, "- "+text)
		case "table":
			out = append(out, parseTable(s))
		default:
			out = append(out, text)
		}
	})
	if len(out) == 0 {
		// Fragments without block elements.
		return strings.TrimSpace(doc.Text()), nil
	}
	return strings.Join(out, "\n\n"), nil
}

func parseTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(_ int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, strings.Join(cols, " | "))
		}
	})
	return strings.Join(rows, "\n")
}

// RemoveDuplicateParagraphs drops exact repeats, keeping the first occurrence.
func RemoveDuplicateParagraphs(text string) string {
	parts := strings.Split(text, "\n\n")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// RemoveBoilerplate drops lines that carry site chrome rather than content.
func RemoveBoilerplate(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		lower := strings.ToLower(l)
		skip := false
		for _, m := range noiseMarkers {
			if strings.Contains(lower, m) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Text cleans a plain-text passage.
func Text(raw string) string {
	return RemoveDuplicateParagraphs(CleanBasic(raw))
}

// HTML converts an exported web page and cleans the result, dropping site
// boilerplate along the way.
func HTML(raw string) (string, error) {
	t, err := HTMLToText(raw)
	if err != nil {
		return "", err
	}
	return RemoveDuplicateParagraphs(RemoveBoilerplate(CleanBasic(t))), nil
}
