package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/quotevault/histprice-service/internal/domain"
	"github.com/quotevault/histprice-service/internal/ports"
	"github.com/quotevault/histprice-service/pkg/retry"
)

const (
	defaultBaseURL          = "https://markethistory.example.com"
	defaultRateLimitBackoff = 30 * time.Second
	historyPathFormat       = "/quote/%s/history"
	pingPath                = "/"
)

// Client fetches historical data documents from the HTML source.
// Outbound requests are paced by a local rate limiter so the client
// stays under the source's request allowance; a 429 from the
// source still retries, but with a longer backoff than network errors.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryConf        retry.Config
	rateLimitBackoff time.Duration
	limiter          *rate.Limiter
	logger           *slog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry configures retry behavior
func WithRetry(maxRetries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retryConf.MaxRetries = maxRetries
		c.retryConf.InitialBackoff = backoff
	}
}

// WithRateLimitBackoff sets the minimum pause after a 429 response
func WithRateLimitBackoff(backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.rateLimitBackoff = backoff
	}
}

// WithRequestRate caps outbound requests per second
func WithRequestRate(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With("component", "source_client")
	}
}

// NewClient creates a new source client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:          defaultBaseURL,
		retryConf:        retry.DefaultConfig(),
		rateLimitBackoff: defaultRateLimitBackoff,
		limiter:          rate.NewLimiter(rate.Limit(2), 1),
		logger:           slog.Default().With("component", "source_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchHistory retrieves the raw markup document for a symbol.
// Returns the full response body verbatim; nothing is written anywhere
// on failure, so downstream never sees a partial document.
func (c *Client) FetchHistory(ctx context.Context, symbol string) ([]byte, error) {
	var body []byte

	err := retry.Do(ctx, c.retryConf, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		u := c.baseURL + fmt.Sprintf(historyPathFormat, url.PathEscape(symbol))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/html")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Debug("request failed, will retry", "symbol", symbol, "error", err)
			return retry.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("rate limited by source", "symbol", symbol)
			return retry.NewRetryableErrorWithBackoff(domain.ErrRateLimited, c.rateLimitBackoff)
		}

		if resp.StatusCode >= 500 {
			c.logger.Warn("source server error", "symbol", symbol, "status", resp.StatusCode)
			return retry.NewRetryableError(fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode))
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.Error("unexpected response", "symbol", symbol, "status", resp.StatusCode)
			return fmt.Errorf("%w: status %d", domain.ErrUnexpectedStatus, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return body, nil
}

// Ping checks if the source is reachable
func (c *Client) Ping(ctx context.Context) error {
	return retry.Do(ctx, c.retryConf, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pingPath, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.NewRetryableError(fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.NewRetryableError(fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode))
		}

		return nil
	})
}

// Ensure Client implements SourceClient
var _ ports.SourceClient = (*Client)(nil)
