// Package riot is a small client for the Riot Games Account-V1 API, used to
// validate League of Legends accounts before they are linked.
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the European regional routing host.
const DefaultBaseURL = "https://europe.api.riotgames.com"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("riot api key not configured")

// Account is the Account-V1 representation of a Riot ID.
type Account struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// APIError is a non-200 response from the Riot API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("riot api status %d: %s", e.StatusCode, e.Body)
}

// Client calls the Account-V1 API with client-side rate limiting.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another routing host or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the default 10s-timeout HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit sets the sustained request rate and burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// NewClient creates a client. The default limiter allows 20 requests per second,
// the development key allowance.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(20), 20),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AccountByRiotID resolves gameName#tagLine. Any non-200 answer is returned as *APIError.
func (c *Client) AccountByRiotID(ctx context.Context, gameName, tagLine string) (*Account, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if gameName == "" || tagLine == "" {
		return nil, fmt.Errorf("game name and tag line are required")
	}
	endpoint := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.baseURL, url.PathEscape(gameName), url.PathEscape(tagLine))

	var account Account
	if err := c.get(ctx, endpoint, &account); err != nil {
		return nil, fmt.Errorf("failed to get account by Riot ID: %w", err)
	}
	return &account, nil
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Riot API: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err), slog.String("component", "riot"))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
