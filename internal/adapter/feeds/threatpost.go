package feeds

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractThreatPost targets Threat Post's content containers directly
// to avoid the sidebar and sponsor boilerplate its pages carry, falling
// back to the default extraction when the selectors match nothing.
func extractThreatPost(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("op=feeds.extract_threatpost: %w", err)
	}

	body := doc.Find("div.c-article__content, div.post-content, div.entry-content").First()
	if body.Length() == 0 {
		return extractDefault(html)
	}

	text := paragraphText(body, func(text string) bool {
		return strings.Contains(text, "Infosec Insider")
	})
	if text == "" {
		return extractDefault(html)
	}
	return text, nil
}
