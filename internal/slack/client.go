// Package slack is a minimal Slack Web API client covering the calls the
// EOD scraper needs: conversations.history and auth.test.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
)

const defaultBaseURL = "https://slack.com/api"

var (
	ErrMissingChannel = errors.New("'slackChannel' is not set in the plugin config")
	ErrMissingToken   = errors.New("'slackApiToken' is not set in the plugin config")
)

// Config holds Slack client configuration.
type Config struct {
	Channel        string
	Token          string
	BaseURL        string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client talks to the Slack Web API. It is constructed explicitly and
// validates its configuration before any network call.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	channel        string
	token          string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a Slack client. A missing channel or token fails fast.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Channel == "" {
		return nil, ErrMissingChannel
	}
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 100
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = 1 * time.Second
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        baseURL,
		channel:        cfg.Channel,
		token:          cfg.Token,
		pageSize:       pageSize,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		logger:         logger.With("channel", cfg.Channel),
	}, nil
}

// Channel returns the configured channel id.
func (c *Client) Channel() string {
	return c.channel
}

// HistoryPage fetches one page of channel history for the given time
// range. An empty cursor requests the first page; the returned
// NextCursor is empty once the sequence is exhausted.
func (c *Client) HistoryPage(ctx context.Context, oldest, latest time.Time, cursor string) (*domain.MessagePage, error) {
	params := url.Values{}
	params.Set("channel", c.channel)
	params.Set("oldest", formatTimestamp(oldest))
	params.Set("latest", formatTimestamp(latest))
	params.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp historyResponse
	if err := c.call(ctx, "conversations.history", params, &resp); err != nil {
		return nil, err
	}

	page := &domain.MessagePage{Messages: resp.Messages}
	if resp.HasMore {
		page.NextCursor = resp.ResponseMetadata.NextCursor
	}
	return page, nil
}

// AuthTest validates the configured token against the Slack API.
func (c *Client) AuthTest(ctx context.Context) error {
	var resp authTestResponse
	if err := c.call(ctx, "auth.test", url.Values{}, &resp); err != nil {
		return err
	}
	c.logger.Debug("slack token validated", "team", resp.Team, "user", resp.User)
	return nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + method
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.doRequest(ctx, endpoint, out)
		if err == nil {
			return nil
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("slack request failed, retrying",
			"method", method,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s after %d attempts: %w", method, c.maxAttempts, err)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	// Slack reports API-level failures inside a 200 response.
	switch v := out.(type) {
	case *historyResponse:
		if !v.OK {
			return fmt.Errorf("slack api error: %s", v.Error)
		}
	case *authTestResponse:
		if !v.OK {
			return fmt.Errorf("slack api error: %s", v.Error)
		}
	}

	return nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

// formatTimestamp renders a time the way Slack's history filters expect:
// Unix seconds as a decimal string with millisecond precision.
func formatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMilli())/1000, 'f', 3, 64)
}
