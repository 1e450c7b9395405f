package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"
)

const (
	// maxEmbedsPerMessage is Discord's limit for a single webhook message.
	maxEmbedsPerMessage = 10
	webhookAttempts     = 3
	maxRetryAfter       = 30 * time.Second
)

// Webhook posts messages through a Discord webhook URL.
type Webhook struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
	retryDelay  time.Duration
}

// NewWebhook returns nil when webhookURL is empty. minGap is the minimum
// spacing between messages; zero disables throttling.
func NewWebhook(webhookURL string, minGap time.Duration) *Webhook {
	if webhookURL == "" {
		return nil
	}
	limit := rate.Inf
	if minGap > 0 {
		limit = rate.Every(minGap)
	}
	return &Webhook{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(limit, 1),
		retryDelay:  time.Second,
	}
}

type webhookPayload struct {
	Content string                    `json:"content,omitempty"`
	Embeds  []*discordgo.MessageEmbed `json:"embeds,omitempty"`
}

type webhookMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

// statusError is returned for non-2xx responses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("discord status: %d, body: %s", e.code, e.body)
}

// PostEmbeds sends content followed by embeds, split into as many messages
// as Discord's per-message embed limit requires.
func (w *Webhook) PostEmbeds(ctx context.Context, content string, embeds []*discordgo.MessageEmbed) error {
	first := true
	for len(embeds) > 0 || first {
		n := min(len(embeds), maxEmbedsPerMessage)
		payload := webhookPayload{Embeds: embeds[:n]}
		if first {
			payload.Content = content
		}
		if _, err := w.send(ctx, payload); err != nil {
			return err
		}
		embeds = embeds[n:]
		first = false
	}
	return nil
}

// send posts one message and returns its ID. 5xx and 429 responses are
// retried; other 4xx responses are not.
func (w *Webhook) send(ctx context.Context, payload webhookPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	target, err := url.Parse(w.webhookURL)
	if err != nil {
		return "", err
	}
	q := target.Query()
	q.Set("wait", "true")
	target.RawQuery = q.Encode()

	var msgID string
	err = retry.Do(
		func() error {
			if err := w.rateLimiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			id, err := w.post(ctx, target.String(), body)
			if err != nil {
				return err
			}
			msgID = id
			return nil
		},
		retry.Attempts(webhookAttempts),
		retry.Delay(w.retryDelay),
		retry.MaxDelay(maxRetryAfter),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying Discord webhook", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("webhook send: %w", err)
	}
	return msgID, nil
}

func (w *Webhook) post(ctx context.Context, target string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var msg webhookMessage
		if err := json.Unmarshal(respBody, &msg); err != nil {
			return "", retry.Unrecoverable(fmt.Errorf("decode webhook response: %w", err))
		}
		return msg.ID, nil
	}

	statusErr := &statusError{code: resp.StatusCode, body: string(respBody)}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := retryAfter(resp); wait > 0 {
			select {
			case <-ctx.Done():
				return "", retry.Unrecoverable(ctx.Err())
			case <-time.After(wait):
			}
		}
		return "", statusErr
	case resp.StatusCode >= 500:
		return "", statusErr
	default:
		return "", retry.Unrecoverable(statusErr)
	}
}

// retryAfter reads the Retry-After header in seconds, capped at maxRetryAfter.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs*float64(time.Second)), maxRetryAfter)
}
