package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cyberbrief/internal/domain"
)

func TestPrepareMessageLayout(t *testing.T) {
	t.Parallel()

	msg := prepareMessage(domain.Article{
		Title:   "Critical RCE",
		URL:     "https://example.com/rce",
		Source:  "Example",
		Score:   8.0,
		Content: "A serious bug was found.",
	})

	assert.Contains(t, msg, "<b>Critical RCE</b>")
	assert.Contains(t, msg, "A serious bug was found.")
	assert.Contains(t, msg, "<i>Source: Example</i>")
	assert.Contains(t, msg, "<i>Score: 8.0/10</i>")
	assert.Contains(t, msg, `<a href="https://example.com/rce">Article Link</a>`)
}

func TestPrepareMessageFallsBackToSummary(t *testing.T) {
	t.Parallel()

	msg := prepareMessage(domain.Article{
		Title:   "t",
		URL:     "https://a",
		Summary: "Only a summary.",
	})
	assert.Contains(t, msg, "Only a summary.")
}

func TestPrepareMessageRestoresInlineLinks(t *testing.T) {
	t.Parallel()

	msg := prepareMessage(domain.Article{
		Title:   "t",
		URL:     "https://a",
		Content: "See the advisory (https://ref.example/adv) for details.",
	})
	assert.Contains(t, msg, `<a href="https://ref.example/adv">the advisory</a>`)
	assert.NotContains(t, msg, "(https://ref.example/adv)")
}

func TestPrepareMessageEscapesHTML(t *testing.T) {
	t.Parallel()

	msg := prepareMessage(domain.Article{
		Title:   "Bypass via <script> & friends",
		URL:     "https://a",
		Source:  "A & B",
		Content: "Payload uses <img> tags.",
	})
	assert.Contains(t, msg, "<b>Bypass via &lt;script&gt; &amp; friends</b>")
	assert.Contains(t, msg, "Payload uses &lt;img&gt; tags.")
	assert.Contains(t, msg, "Source: A &amp; B")
}

func TestPrepareMessageTruncatesOversizedTitle(t *testing.T) {
	t.Parallel()

	// Feed entries arrive untrusted; a runaway title must shrink to the
	// title cap instead of blowing past the message limit.
	msg := prepareMessage(domain.Article{
		Title:   strings.Repeat("t", 5000),
		URL:     "https://example.com/a",
		Source:  "Example",
		Content: "Short body.",
	})
	assert.LessOrEqual(t, len([]rune(msg)), maxMessageLen)
	assert.Contains(t, msg, "<b>"+strings.Repeat("t", maxTitleLen)+"...</b>")
	assert.Contains(t, msg, "Short body.")
}

func TestPrepareMessageHugeFixedPartsDropBody(t *testing.T) {
	t.Parallel()

	// When title, source, and URL together leave no room at all, the
	// body is dropped entirely rather than sliced with a negative bound.
	msg := prepareMessage(domain.Article{
		Title:   strings.Repeat("t", 5000),
		URL:     "https://example.com/" + strings.Repeat("u", 4000),
		Source:  strings.Repeat("s", 300),
		Content: strings.Repeat("x", 5000),
	})
	assert.NotContains(t, msg, "xxx")
	assert.Contains(t, msg, "Article Link")
}

func TestPrepareMessageCapsLength(t *testing.T) {
	t.Parallel()

	msg := prepareMessage(domain.Article{
		Title:   "t",
		URL:     "https://a",
		Source:  "s",
		Content: strings.Repeat("x", 10000),
	})
	assert.LessOrEqual(t, len([]rune(msg)), maxMessageLen)
	assert.Contains(t, msg, "...")
}
