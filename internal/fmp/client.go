package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trogers1052/quote-refresh-service/internal/models"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://financialmodelingprep.com/api"
	DefaultTimeout = 10 * time.Second

	limitReachedMarker = "Limit Reach"
)

// DefaultExchanges are enumerated on a cold start
var DefaultExchanges = []string{"NASDAQ", "NYSE", "TSE", "SSE", "HKEX", "LSE"}

// Client talks to the Financial Modeling Prep REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	exchanges  []string
	now        func() time.Time
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit paces outgoing requests to rps requests per second
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithExchanges overrides the exchanges enumerated when none are given
func WithExchanges(exchanges ...string) Option {
	return func(c *Client) {
		if len(exchanges) > 0 {
			c.exchanges = exchanges
		}
	}
}

// WithClock overrides the time source used for StoredTimestamp
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for baseURL authenticated with apiKey
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		exchanges:  DefaultExchanges,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchQuotes returns quotes for the given symbols in a single request.
// Symbols the provider does not know are simply absent from the result.
func (c *Client) FetchQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	escaped := make([]string, len(symbols))
	for i, s := range symbols {
		escaped[i] = url.PathEscape(s)
	}
	path := "/v3/quote/" + strings.Join(escaped, ",")

	var quotes []models.QuoteSnapshot
	if err := c.getJSON(ctx, path, &quotes); err != nil {
		return nil, err
	}

	c.stamp(quotes)
	return quotes, nil
}

// FetchExchangeSymbols enumerates every listed symbol with its quote on the
// given exchanges, or on the configured default exchanges when none are given.
// It stops at the first error and returns what was gathered so far.
func (c *Client) FetchExchangeSymbols(ctx context.Context, exchanges ...string) ([]models.QuoteSnapshot, error) {
	if len(exchanges) == 0 {
		exchanges = c.exchanges
	}

	var all []models.QuoteSnapshot
	for _, exchange := range exchanges {
		var quotes []models.QuoteSnapshot
		if err := c.getJSON(ctx, "/v3/symbol/"+url.PathEscape(exchange), &quotes); err != nil {
			return all, err
		}
		c.stamp(quotes)
		all = append(all, quotes...)
	}
	return all, nil
}

func (c *Client) stamp(quotes []models.QuoteSnapshot) {
	storedAt := c.now().Unix()
	for i := range quotes {
		quotes[i].StoredTimestamp = storedAt
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransientError{Endpoint: path, Err: err}
		}
	}

	endpoint := c.baseURL + path + "?apikey=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &TransientError{Endpoint: path, Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Endpoint: path, Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{Endpoint: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if strings.Contains(string(body), limitReachedMarker) {
		return &RateLimitError{Endpoint: path, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransientError{Endpoint: path, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &TransientError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage extracts the provider's "Error Message" field, falling back to the raw body
func errorMessage(body []byte) string {
	var payload struct {
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	return strings.TrimSpace(string(body))
}
