// Package telegram delivers approved articles to Telegram chats over
// the Bot API, pacing sends per chat and backing off on flood control.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cyberbrief/internal/adapter/observability"
	"cyberbrief/internal/domain"
	"cyberbrief/internal/service/ratelimiter"
)

const (
	defaultAPIBase  = "https://api.telegram.org"
	maxSendTries    = 3
	defaultFloodSec = 30

	// defaultPause spaces sends when no rate limiter is configured.
	defaultPause = 3 * time.Second
)

// floodRetryRe pulls the wait hint out of flood-control descriptions
// like "Too Many Requests: retry after 26".
var floodRetryRe = regexp.MustCompile(`retry (?:in|after) (\d+)`)

// Publisher implements domain.Publisher over one or more bots. A
// publisher with no bots is disabled and publishes nothing.
type Publisher struct {
	bots    []BotConfig
	apiBase string
	hc      *http.Client
	limiter ratelimiter.Limiter
	pause   time.Duration

	// sleep is swappable so tests do not wait out flood delays.
	sleep func(ctx context.Context, d time.Duration)
}

// Option adjusts publisher construction.
type Option func(*Publisher)

// WithAPIBase points the publisher at a different Bot API host.
func WithAPIBase(base string) Option {
	return func(p *Publisher) { p.apiBase = strings.TrimRight(base, "/") }
}

// WithLimiter installs a per-chat send budget.
func WithLimiter(l ratelimiter.Limiter) Option {
	return func(p *Publisher) { p.limiter = l }
}

// New builds a publisher for the given bots.
func New(bots []BotConfig, timeout time.Duration, opts ...Option) *Publisher {
	p := &Publisher{
		bots:    bots,
		apiBase: defaultAPIBase,
		hc:      &http.Client{Timeout: timeout},
		pause:   defaultPause,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(bots) == 0 {
		slog.Warn("no telegram bots configured, publishing disabled")
	}
	return p
}

// Enabled reports whether at least one bot is configured.
func (p *Publisher) Enabled() bool { return len(p.bots) > 0 }

// Publish sends each article to every chat of every bot. Per-chat
// failures are logged and do not stop delivery to the remaining chats;
// an article that reaches no chat at all is reported as an error.
func (p *Publisher) Publish(ctx context.Context, articles []domain.Article) error {
	if !p.Enabled() {
		return nil
	}

	var errs []error
	for _, a := range articles {
		msg := prepareMessage(a)
		delivered := 0
		targets := 0

		for botIdx, bot := range p.bots {
			for _, chatID := range bot.ChatIDs {
				targets++
				if err := p.sendPaced(ctx, bot.Token, chatID, msg); err != nil {
					slog.Error("publish failed",
						slog.Int("bot", botIdx+1),
						slog.String("chat_id", chatID),
						slog.String("title", a.Title),
						slog.Any("error", err))
					continue
				}
				delivered++
				observability.ArticlesPublishedTotal.Inc()
				slog.Info("article published",
					slog.Int("bot", botIdx+1),
					slog.String("chat_id", chatID),
					slog.String("title", a.Title))
				if p.limiter == nil {
					// No budget to consult: fixed spacing keeps us
					// under Telegram's global send limits.
					p.sleep(ctx, p.pause)
				}
			}
		}

		if delivered == 0 && targets > 0 {
			errs = append(errs, fmt.Errorf("op=telegram.publish: title=%q: no chat reached", a.Title))
		}
	}
	return errors.Join(errs...)
}

// sendPaced waits out the per-chat budget, then sends with flood-wait
// retries.
func (p *Publisher) sendPaced(ctx context.Context, token, chatID, msg string) error {
	if err := p.waitForBudget(ctx, chatID); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxSendTries; attempt++ {
		err := p.sendMessage(ctx, token, chatID, msg)
		if err == nil {
			return nil
		}
		lastErr = err

		var flood *floodError
		if !errors.As(err, &flood) || attempt == maxSendTries-1 {
			return err
		}
		slog.Warn("flood control hit, backing off",
			slog.String("chat_id", chatID),
			slog.Duration("wait", flood.retryAfter))
		p.sleep(ctx, flood.retryAfter)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (p *Publisher) waitForBudget(ctx context.Context, chatID string) error {
	if p.limiter == nil {
		return nil
	}
	for {
		allowed, retryAfter, err := p.limiter.Allow(ctx, "publish:"+chatID, 1)
		if err != nil || allowed {
			// Limiter errors fail open.
			return nil
		}
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		p.sleep(ctx, retryAfter)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// floodError carries the provider's requested wait.
type floodError struct {
	description string
	retryAfter  time.Duration
}

func (e *floodError) Error() string {
	return fmt.Sprintf("flood control: %s", e.description)
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (p *Publisher) sendMessage(ctx context.Context, token, chatID, msg string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  msg,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("op=telegram.send: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", p.apiBase, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("op=telegram.send: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=telegram.send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("op=telegram.send: decode: %w", err)
	}
	if api.OK {
		return nil
	}

	if api.ErrorCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(api.Description), "flood") {
		return &floodError{
			description: api.Description,
			retryAfter:  floodWait(api),
		}
	}
	return fmt.Errorf("op=telegram.send: chat=%s code=%d: %s", chatID, api.ErrorCode, api.Description)
}

// floodWait prefers the structured retry_after parameter and falls back
// to parsing the description, then to a conservative default.
func floodWait(api apiResponse) time.Duration {
	if api.Parameters.RetryAfter > 0 {
		return time.Duration(api.Parameters.RetryAfter) * time.Second
	}
	if m := floodRetryRe.FindStringSubmatch(strings.ToLower(api.Description)); m != nil {
		var sec int
		if _, err := fmt.Sscanf(m[1], "%d", &sec); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return defaultFloodSec * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
