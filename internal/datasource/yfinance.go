package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

// DefaultYFinanceURL is the Yahoo Finance API host.
const DefaultYFinanceURL = "https://query1.finance.yahoo.com"

// YFinance fetches daily history and fundamentals from Yahoo Finance.
type YFinance struct {
	baseURL string
	client  *http.Client
	limiter *infra.Limiter
	cache   infra.Store
}

// YFinanceOption configures a YFinance source.
type YFinanceOption func(*YFinance)

// WithBaseURL points the source at another host, e.g. a test server.
func WithBaseURL(u string) YFinanceOption {
	return func(y *YFinance) { y.baseURL = u }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) YFinanceOption {
	return func(y *YFinance) { y.client = newHTTPClient(d) }
}

// WithLimiter shares a rate limiter with other sources.
func WithLimiter(l *infra.Limiter) YFinanceOption {
	return func(y *YFinance) { y.limiter = l }
}

// WithCache caches responses in s.
func WithCache(s infra.Store) YFinanceOption {
	return func(y *YFinance) { y.cache = s }
}

// NewYFinance creates a Yahoo Finance source.
func NewYFinance(opts ...YFinanceOption) *YFinance {
	y := &YFinance{
		baseURL: DefaultYFinanceURL,
		client:  newHTTPClient(DefaultTimeout),
		limiter: infra.NewLimiter(infra.DefaultRatePerSecond, infra.DefaultBurst),
		cache:   infra.NewMemoryStore(infra.StoreOptions{}),
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *yfError                                `json:"error"`
	} `json:"quoteSummary"`
}

type yfFinVal struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// summaryModules are the quoteSummary modules carrying the scored fields.
const summaryModules = "summaryDetail,defaultKeyStatistics,financialData"

// --- Public methods ---

// History returns daily bars for period (see ValidatePeriod). Bars without
// a close are dropped and the result is normalized.
func (y *YFinance) History(ctx context.Context, symbol, period string) (models.Series, error) {
	symbol = NormalizeSymbol(symbol)
	period, err := ValidatePeriod(period)
	if err != nil {
		return nil, err
	}

	cacheKey := "hist:" + symbol + ":" + period
	var cached models.Series
	if err := infra.GetJSON(y.cache, cacheKey, &cached); err == nil {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d&includeAdjustedClose=false",
		y.baseURL, url.PathEscape(symbol), period)

	var resp yfChartResponse
	if err := y.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("yfinance chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	series := models.NormalizeSeries(parseYFCandles(resp.Chart.Result[0]))
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s has no price history", ErrTickerNotFound, symbol)
	}

	if err := infra.SetJSON(y.cache, cacheKey, series); err != nil {
		log.Warn().Str("component", "yfinance").Err(err).Msg("cache write failed")
	}
	return series, nil
}

// Fundamentals returns every numeric field of the summary modules keyed by
// the provider's field name (trailingPE, priceToBook, revenueGrowth, ...).
func (y *YFinance) Fundamentals(ctx context.Context, symbol string) (models.RawFundamentals, error) {
	symbol = NormalizeSymbol(symbol)

	cacheKey := "fund:" + symbol
	var cached models.RawFundamentals
	if err := infra.GetJSON(y.cache, cacheKey, &cached); err == nil {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(symbol), summaryModules)

	var resp yfSummaryResponse
	if err := y.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("yfinance fundamentals %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yfinance API error: %s", resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	raw := flattenSummary(resp.QuoteSummary.Result[0])
	if err := infra.SetJSON(y.cache, cacheKey, raw); err != nil {
		log.Warn().Str("component", "yfinance").Err(err).Msg("cache write failed")
	}
	return raw, nil
}

// --- Helpers ---

func (y *YFinance) getJSON(ctx context.Context, endpoint string, v any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	body, _, err := doGet(ctx, y.client, endpoint, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// flattenSummary collects {raw: number} fields across modules. Later
// modules do not overwrite a field already seen.
func flattenSummary(result map[string]map[string]json.RawMessage) models.RawFundamentals {
	raw := models.RawFundamentals{}
	for _, module := range []string{"summaryDetail", "defaultKeyStatistics", "financialData"} {
		for field, msg := range result[module] {
			if _, seen := raw[field]; seen {
				continue
			}
			var v yfFinVal
			if err := json.Unmarshal(msg, &v); err != nil || v.Raw == nil {
				continue
			}
			raw[field] = *v.Raw
		}
	}
	return raw
}

func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *q.Close[i],
		}
		c.Open = valueOr(q.Open, i, c.Close)
		c.High = valueOr(q.High, i, c.Close)
		c.Low = valueOr(q.Low, i, c.Close)
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func valueOr(vals []*float64, i int, def float64) float64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return def
}

// IsNotFound reports whether err means the symbol does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTickerNotFound)
}
