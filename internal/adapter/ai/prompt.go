package ai

import (
	"fmt"
	"strings"

	"cyberbrief/internal/domain"
)

// Text budgets per item. Gemma endpoints run on small token-per-minute
// quotas, so prompts stay short.
const (
	summaryPreviewRunes = 150
	contentPreviewRunes = 300
	singleContentRunes  = 800
	singleSummaryRunes  = 500
)

// buildFilterPrompt embeds the batch with 1-based ordinals and
// instructs the model to return only approved articles as
// {"articles":[{"id":n,"score":f}]}.
func buildFilterPrompt(batch []domain.Article, threshold float64) string {
	var list strings.Builder
	for i, a := range batch {
		summary := a.Summary
		if summary == "" {
			summary = a.Title
		}
		summary = truncateRunes(summary, summaryPreviewRunes)
		fmt.Fprintf(&list, "%d. [%s] %s\n   Summary: %s\n", i+1, a.Source, a.Title, summary)
	}

	return fmt.Sprintf(`You are a Cybersecurity News Filter & Scorer. Review these %d articles and score them 0.0-10.0.

**Scoring Guidelines:**
- 9-10: Critical 0-day exploits, major breaches affecting millions, industry-shifting events
- 7-8: Important security patches, new attack vectors, notable research/reports, CVEs
- 5-6: Routine security updates, vendor news, moderate interest
- <5: Marketing fluff, basic tips, opinion pieces, event announcements (REJECT these)

**Only include articles scoring %.1f or higher in your response.**

**Articles:**
%s
**Instructions:**
Reply with ONLY a JSON object. Key "articles" contains array of objects with "id" (1-%d) and "score" (float %.1f-10.0).
Only include articles you approve (score >= %.1f). Omit rejected articles entirely.
Example: {"articles": [{"id": 1, "score": 7.5}, {"id": 5, "score": 8.2}]}
`, len(batch), threshold, list.String(), len(batch), threshold, threshold)
}

// buildScorePrompt embeds the batch for total scoring: every item gets
// a verdict under the "scores" key.
func buildScorePrompt(batch []domain.Article) string {
	var list strings.Builder
	for i, a := range batch {
		preview := a.Content
		limit := contentPreviewRunes
		if preview == "" {
			preview = a.Summary
			limit = 200
		}
		if preview == "" {
			preview = "No content"
		}
		preview = truncateRunes(preview, limit)
		fmt.Fprintf(&list, "%d. [%s] %s\n   Content: %s...\n\n", i+1, a.Source, a.Title, preview)
	}

	return fmt.Sprintf(`You are a Cybersecurity News Scorer. Rate each of these %d articles on a scale of 0.0-10.0.

**Scoring Guidelines:**
- 9-10: Critical 0-day exploits, major data breaches affecting millions, industry-shifting events
- 7-8: Important security patches, new attack vectors, notable security research/reports
- 5-6: Routine security updates, vendor news, moderate interest
- <5: Marketing content, basic tips, low technical value, opinion pieces

**Articles to Score:**
%s**Instructions:**
Reply with ONLY a JSON object. The key "scores" should contain an array of objects with "id" (1-%d) and "score" (float 0.0-10.0).
Example: {"scores": [{"id": 1, "score": 7.5}, {"id": 2, "score": 4.0}, {"id": 3, "score": 8.2}]}
`, len(batch), list.String(), len(batch))
}

// buildSinglePrompt builds the short per-item prompt.
func buildSinglePrompt(a domain.Article) string {
	content := a.Content
	limit := singleContentRunes
	if content == "" {
		content = a.Summary
		limit = singleSummaryRunes
	}
	content = truncateRunes(content, limit)

	return fmt.Sprintf(`Rate this cybersecurity article 0.0-10.0:

Guidelines:
9-10: Critical 0-day, major breach, industry shift
7-8: Important patch, new attack vector, notable report
5-6: Routine update, vendor news
<5: Marketing, low quality

Output JSON: {"score": float, "reason": "short string"}

Title: %s
Content: %s
Source: %s
`, a.Title, content, a.Source)
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n])
	}
	return s
}
