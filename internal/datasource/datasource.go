// Package datasource acquires the market data the analysis core consumes:
// daily price history, provider fundamentals and per-symbol news. Every
// source is rate limited and cached through the infra package.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seenimoa/stockscore/pkg/models"
)

// PriceSource returns normalized daily bars for a symbol over a period.
type PriceSource interface {
	History(ctx context.Context, symbol, period string) (models.Series, error)
}

// FundamentalsSource returns the provider's flat fundamental field map.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (models.RawFundamentals, error)
}

// NewsSource returns recent headlines for a symbol, newest first.
type NewsSource interface {
	StockNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
}

// --- Sentinel errors ---

// ErrNotSupported is returned when a data source does not support a method.
var ErrNotSupported = errors.New("operation not supported by this data source")

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = errors.New("rate limited by data source")

// ErrInvalidPeriod is returned for a history period the sources do not know.
var ErrInvalidPeriod = errors.New("invalid period")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// Periods accepted by History.
var validPeriods = map[string]bool{
	"1mo": true, "3mo": true, "6mo": true, "ytd": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "max": true,
}

// DefaultPeriod is the history span used when none is given.
const DefaultPeriod = "1y"

// ValidatePeriod normalizes p and rejects unknown periods.
func ValidatePeriod(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return DefaultPeriod, nil
	}
	if !validPeriods[p] {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
	return p, nil
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 30 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		httpErr := &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, resp.StatusCode, fmt.Errorf("%w: %w", ErrRateLimited, httpErr)
		case http.StatusNotFound:
			return nil, resp.StatusCode, fmt.Errorf("%w: %w", ErrTickerNotFound, httpErr)
		}
		return nil, resp.StatusCode, httpErr
	}

	return resp.Body, resp.StatusCode, nil
}
