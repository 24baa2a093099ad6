package feeds

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberbrief/internal/domain"
)

func domainArticle(url, summary string) domain.Article {
	return domain.Article{
		Title:       "t",
		URL:         url,
		Source:      "Example",
		Summary:     summary,
		ContentHash: Fingerprint(url),
	}
}

func TestExtractDefaultPrefersArticleElement(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	  <div class="sidebar"><p>Subscribe to our newsletter!</p></div>
	  <article>
	    <h2>Heading</h2>
	    <p>Real   content  with
	    odd whitespace.</p>
	  </article>
	</body></html>`

	text, err := extractDefault(html)
	require.NoError(t, err)
	assert.Equal(t, "Heading\n\nReal content with odd whitespace.", text)
}

func TestExtractDefaultFallsBackToArticleDiv(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	  <div class="article-body"><p>Div-hosted content.</p></div>
	</body></html>`

	text, err := extractDefault(html)
	require.NoError(t, err)
	assert.Equal(t, "Div-hosted content.", text)
}

func TestExtractDefaultInlineLinkRules(t *testing.T) {
	t.Parallel()

	longURL := "https://example.com/" + strings.Repeat("a", 120)
	html := `<html><body><article>
	  <p>See <a href="https://short.example/x">the advisory</a> for details.</p>
	  <p>Ignore <a href="/relative">internal link</a> URLs.</p>
	  <p>Skip <a href="` + longURL + `">very long</a> targets.</p>
	</article></body></html>`

	text, err := extractDefault(html)
	require.NoError(t, err)
	assert.Contains(t, text, "the advisory (https://short.example/x)")
	assert.Contains(t, text, "internal link")
	assert.NotContains(t, text, "/relative")
	assert.Contains(t, text, "very long")
	assert.NotContains(t, text, longURL)
}

func TestExtractThreatPostTargetsContentDiv(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	  <div class="c-article__content">
	    <p>The actual story.</p>
	    <p>Infosec Insider content is written by sponsors.</p>
	  </div>
	  <div class="sidebar"><p>Trending now</p></div>
	</body></html>`

	text, err := extractThreatPost(html)
	require.NoError(t, err)
	assert.Equal(t, "The actual story.", text)
}

func TestExtractThreatPostFallsBackToDefault(t *testing.T) {
	t.Parallel()

	html := `<html><body><article><p>Generic layout.</p></article></body></html>`
	text, err := extractThreatPost(html)
	require.NoError(t, err)
	assert.Equal(t, "Generic layout.", text)
}

func TestCatalogBuildsAllSources(t *testing.T) {
	t.Parallel()

	sources, err := DefaultSources(&fakeFetcher{})
	require.NoError(t, err)
	require.Len(t, sources, 8)

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "The Hacker News")
	assert.Contains(t, names, "Threat Post")
	assert.Contains(t, names, "CSO Online")
}

func TestCatalogSourcesFetchThroughPageFetcher(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"https://threatpost.com/feed/": sampleRSS,
	}}
	sources, err := DefaultSources(f)
	require.NoError(t, err)

	for _, s := range sources {
		if s.Name() != "Threat Post" {
			continue
		}
		articles, err := s.Fetch(context.Background())
		require.NoError(t, err)
		assert.Len(t, articles, 2)
		assert.Equal(t, "Threat Post", articles[0].Source)
	}
}
