// Package gemini implements a minimal REST client for the Google
// generative language API. Only generateContent is used: submit a text
// prompt, receive a text response.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cyberbrief/internal/domain"
)

const maxErrorSnippet = 300

// Client talks to one Gemini-compatible base URL. The bound API key is
// swappable via SetCredential; the caller serializes access.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New constructs a client with the given request timeout. The timeout
// is the only bounding mechanism per call; an expired attempt surfaces
// as a transport failure and the orchestrator advances.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

// SetCredential rebinds the client to a different API key.
func (c *Client) SetCredential(key string) { c.apiKey = key }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate posts the prompt to models/{model}:generateContent and
// returns the concatenated candidate text. Errors are classified into
// the domain taxonomy so the attempt loop can react per class.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, _ := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("op=gemini.generate: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		// Timeouts and connection errors carry no payload to classify.
		return "", fmt.Errorf("op=gemini.generate: %v: %w", err, domain.ErrTransportEmpty)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet := readSnippet(resp.Body, maxErrorSnippet)
		return "", classifyStatus(resp.StatusCode, snippet)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("op=gemini.generate: decode: %w", domain.ErrTransportEmpty)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("op=gemini.generate: no candidates: %w", domain.ErrTransportEmpty)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("op=gemini.generate: empty text: %w", domain.ErrTransportEmpty)
	}
	return text, nil
}

// classifyStatus maps provider rejections onto the error taxonomy.
// 404 means the model does not exist for this credential; 429 and
// quota-flavored bodies mean capacity is gone until rotation.
func classifyStatus(status int, snippet string) error {
	lower := strings.ToLower(snippet)
	switch {
	case status == http.StatusNotFound || strings.Contains(lower, "not found"):
		return fmt.Errorf("op=gemini.generate: status=%d: %w", status, domain.ErrEndpointUnavailable)
	case status == http.StatusTooManyRequests ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted"):
		return fmt.Errorf("op=gemini.generate: status=%d: %w", status, domain.ErrQuotaExhausted)
	default:
		return fmt.Errorf("op=gemini.generate: status=%d body=%q: %w", status, snippet, domain.ErrInternal)
	}
}

// readSnippet reads up to n bytes from r for error reporting.
func readSnippet(r io.Reader, n int) string {
	buf, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(buf)
}
