package enrich

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// textBlocks are the elements whose text makes up an article body.
const textBlocks = "h1, h2, h3, h4, p, li, td, blockquote"

// ArticleText converts article HTML into plain text paragraphs separated by
// blank lines. Input without markup is returned with normalized whitespace.
func ArticleText(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if !strings.Contains(trimmed, "<") {
		return normalizeWhitespace(trimmed), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return "", err
	}
	doc.Find("head, script, style, noscript, iframe, nav, footer").Remove()

	var paragraphs []string
	doc.Find(textBlocks).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are reported by their innermost element.
		if s.Find(textBlocks).Length() > 0 {
			return
		}
		if text := normalizeWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return normalizeWhitespace(doc.Text()), nil
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
