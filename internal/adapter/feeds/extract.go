package feeds

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractorFunc turns an article page into clean paragraph text.
// Implementations return "" (not an error) when nothing was found.
type extractorFunc func(html string) (string, error)

// extractorFor selects the extractor for a source by identity.
func extractorFor(name string) extractorFunc {
	switch name {
	case "threatpost":
		return extractThreatPost
	default:
		return extractDefault
	}
}

const maxInlineLinkLen = 100

var whitespaceRe = regexp.MustCompile(`\s+`)

// extractDefault pulls readable paragraphs out of an arbitrary article
// page: the <article> element if present, otherwise the first div whose
// class mentions "article", otherwise the whole document.
func extractDefault(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("op=feeds.extract: %w", err)
	}

	body := doc.Find("article").First()
	if body.Length() == 0 {
		body = doc.Find(`div[class*="article"], div[class*="Article"]`).First()
	}
	sel := body
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	return paragraphText(sel, nil), nil
}

// paragraphText collects p/h2/h3 text under sel, rewriting inline links
// to "text (url)" form and joining paragraphs with blank lines. skip
// drops paragraphs the caller considers boilerplate.
func paragraphText(sel *goquery.Selection, skip func(text string) bool) string {
	var paragraphs []string
	sel.Find("p, h2, h3").Each(func(_ int, p *goquery.Selection) {
		inlineLinks(p)

		text := strings.TrimSpace(whitespaceRe.ReplaceAllString(p.Text(), " "))
		if text == "" {
			return
		}
		if skip != nil && skip(text) {
			return
		}
		paragraphs = append(paragraphs, text)
	})
	return strings.Join(paragraphs, "\n\n")
}

// inlineLinks rewrites external anchors so the URL survives the drop to
// plain text, keeping short "text (url)" references only.
func inlineLinks(p *goquery.Selection) {
	p.Find("a").Each(func(_ int, link *goquery.Selection) {
		text := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")

		if strings.HasPrefix(href, "http") && text != "" &&
			!strings.Contains(text, href) && len(href) < maxInlineLinkLen {
			link.SetText(fmt.Sprintf("%s (%s)", text, href))
			return
		}
		link.SetText(text)
	})
}
