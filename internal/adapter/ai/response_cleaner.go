package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ResponseCleaner sanitizes raw model output into parseable JSON.
// Models routinely wrap payloads in markdown fences or prepend prose;
// the parser depends on this contract being enforced first.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

var (
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)(\w+)\s*:`)
)

// Clean strips fences, extracts the JSON object from mixed content and
// repairs common formatting slips.
func (rc *ResponseCleaner) Clean(response string) string {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSON(response)
	response = rc.validateAndFix(response)
	return response
}

// CleanAndValidate cleans the response and reports whether the result
// is valid JSON.
func (rc *ResponseCleaner) CleanAndValidate(response string) (string, bool) {
	cleaned := rc.Clean(response)
	return cleaned, rc.IsValidJSON(cleaned)
}

// removeMarkdownBlocks removes markdown code-fence markers.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractJSON returns the first balanced JSON object in mixed content.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}

	braceCount := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				return response[start : i+1]
			}
		}
	}
	return response
}

// validateAndFix leaves valid JSON untouched and otherwise applies
// best-effort repairs for trailing commas, unquoted keys and single
// quotes.
func (rc *ResponseCleaner) validateAndFix(response string) string {
	if rc.IsValidJSON(response) {
		return response
	}
	response = trailingCommaRe.ReplaceAllString(response, "$1")
	response = unquotedKeyRe.ReplaceAllString(response, `$1"$2":`)
	response = strings.ReplaceAll(response, "'", `"`)
	return response
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	var temp any
	return json.Unmarshal([]byte(response), &temp) == nil
}
