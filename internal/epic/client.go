// Package epic fetches the current and upcoming free games from the
// Epic Games Store free-games API.
package epic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pauljones0/epic-free-games-bot/internal/config"
	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

var (
	// ErrFetch wraps every failure to obtain a usable response.
	ErrFetch = errors.New("fetch free games")
	// ErrTimeout is additionally wrapped when the request ran out of time.
	ErrTimeout = errors.New("request timed out")
)

// maxBodyBytes bounds how much of the upstream response is read.
const maxBodyBytes = 4 << 20

type Fetcher interface {
	Fetch(ctx context.Context) (*models.FetchResult, error)
}

// Client calls the free-games API.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	apiHost    string
	timeout    time.Duration
}

// New builds a Client from the EPIC_API_* settings.
func New(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		url:        cfg.EpicAPIURL,
		apiKey:     cfg.EpicAPIKey,
		apiHost:    cfg.EpicAPIHost,
		timeout:    cfg.FetchTimeout,
	}
}

// Fetch performs exactly one request. Every failure wraps ErrFetch; nothing
// is retried.
func (c *Client) Fetch(ctx context.Context) (*models.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w after %s", ErrFetch, ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	slog.Debug("Free games API responded", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API status %s", ErrFetch, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w reading body", ErrFetch, ErrTimeout)
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	result, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	slog.Info("Fetched free games", "current", len(result.Current), "upcoming", len(result.Upcoming))
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
