package telegram

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"cyberbrief/internal/domain"
	"cyberbrief/pkg/textx"
)

const (
	// Telegram rejects messages over 4096 characters; the content slice
	// leaves room for title, source, score and the trailing link.
	maxMessageLen = 4096
	maxContentLen = 3800
	// Feeds are untrusted input, so the title gets its own cap to keep
	// the fixed message overhead bounded.
	maxTitleLen = 256
)

// inlineLinkRe matches the "text (url)" references the extractor leaves
// in article content so they can be restored as anchors. The text group
// is bounded to avoid swallowing whole paragraphs.
var inlineLinkRe = regexp.MustCompile(`(\b[\w\s-]{1,50}?)\s*\((https?://[^)]+)\)`)

// prepareMessage renders one article as a Telegram HTML message.
func prepareMessage(a domain.Article) string {
	a.Title = textx.TruncateRunes(textx.SanitizeText(a.Title), maxTitleLen)

	content := a.Content
	if content == "" {
		content = a.Summary
	}
	content = textx.SanitizeText(content)

	msg := renderMessage(a, textx.TruncateRunes(content, maxContentLen))
	if len([]rune(msg)) <= maxMessageLen {
		return msg
	}

	// Re-slice the content to fit under the hard cap. The limit bottoms
	// out at zero when the fixed parts alone overflow, dropping the body
	// rather than slicing with a negative bound.
	overhead := len([]rune(a.Title)) + len([]rune(a.Source)) + len([]rune(a.URL)) + 150
	return renderMessage(a, textx.TruncateRunes(content, maxMessageLen-overhead))
}

func renderMessage(a domain.Article, content string) string {
	body := inlineLinkRe.ReplaceAllStringFunc(html.EscapeString(content), func(m string) string {
		groups := inlineLinkRe.FindStringSubmatch(m)
		return fmt.Sprintf(`<a href="%s">%s</a>`, groups[2], strings.TrimSpace(groups[1]))
	})

	return fmt.Sprintf("<b>%s</b>\n\n%s\n\n<i>Source: %s</i>\n<i>Score: %.1f/10</i>\n\n<a href=\"%s\">Article Link</a>",
		html.EscapeString(a.Title), body, html.EscapeString(a.Source), a.Score, a.URL)
}
