package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD"},
"timestamp":[1704205800,1704292200,1704378600,1704292300],
"indicators":{"quote":[{"open":[100,101,null,101.5],"high":[105,106,107,106.5],
"low":[98,99,100,99.5],"close":[103,104,null,104.5],"volume":[1000,2000,3000,2500]}]}}],"error":null}}`

const summaryJSON = `{"quoteSummary":{"result":[{
"summaryDetail":{"trailingPE":{"raw":28.5,"fmt":"28.50"},"priceToSalesTrailing12Months":{"raw":7.1,"fmt":"7.10"},"currency":"USD"},
"defaultKeyStatistics":{"priceToBook":{"raw":45.2,"fmt":"45.20"},"trailingPE":{"raw":99}},
"financialData":{"revenueGrowth":{"raw":0.021},"earningsGrowth":{"raw":0.11},"currentRatio":{"raw":1.07},"debtToEquity":{},"recommendationKey":"buy"}}],
"error":null}}`

func newTestYFinance(t *testing.T, handler http.HandlerFunc) *YFinance {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYFinance(WithBaseURL(srv.URL), WithLimiter(nil))
}

func TestParseYFCandlesEmpty(t *testing.T) {
	if candles := parseYFCandles(yfChartResult{}); candles != nil {
		t.Fatalf("expected nil candles for empty result, got %d", len(candles))
	}
}

func TestParseYFCandlesNilPointers(t *testing.T) {
	cl := 100.0
	result := yfChartResult{
		Timestamp: []int64{1700000000, 1700086400},
		Indicators: yfIndicators{Quote: []yfOHLCV{{
			Open:   []*float64{nil, nil},
			High:   []*float64{nil, nil},
			Low:    []*float64{nil, nil},
			Close:  []*float64{&cl, nil},
			Volume: []*int64{nil, nil},
		}}},
	}

	candles := parseYFCandles(result)
	if len(candles) != 1 {
		t.Fatalf("expected bars without a close dropped, got %d", len(candles))
	}
	c := candles[0]
	if c.Open != 100 || c.High != 100 || c.Low != 100 || c.Volume != 0 {
		t.Errorf("expected missing fields to fall back to the close, got %+v", c)
	}
}

func TestYFinanceHistory(t *testing.T) {
	var calls atomic.Int32
	yf := newTestYFinance(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/AAPL") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("range"); got != "6mo" {
			t.Errorf("range = %q, want 6mo", got)
		}
		w.Write([]byte(chartJSON))
	})

	s, err := yf.History(context.Background(), " aapl ", "6MO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The null close is dropped and the same-day duplicate keeps the later bar.
	if len(s) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(s))
	}
	if s[1].Close != 104.5 {
		t.Errorf("expected duplicate day resolved to the last bar, got close %.2f", s[1].Close)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("expected a normalized series: %v", err)
	}

	if _, err := yf.History(context.Background(), "AAPL", "6mo"); err != nil {
		t.Fatalf("unexpected error on cached call: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected the second call to hit the cache, got %d requests", calls.Load())
	}
}

func TestYFinanceHistoryNotFound(t *testing.T) {
	yf := newTestYFinance(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})
	_, err := yf.History(context.Background(), "NOPE", "1y")
	if !IsNotFound(err) {
		t.Fatalf("expected ErrTickerNotFound, got %v", err)
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Errorf("expected a wrapped *ErrHTTP, got %v", err)
	}
}

func TestYFinanceRateLimited(t *testing.T) {
	yf := newTestYFinance(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := yf.History(context.Background(), "AAPL", "1y")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestYFinanceInvalidPeriod(t *testing.T) {
	yf := NewYFinance()
	if _, err := yf.History(context.Background(), "AAPL", "7d"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestYFinanceFundamentals(t *testing.T) {
	yf := newTestYFinance(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("modules"); got != summaryModules {
			t.Errorf("modules = %q", got)
		}
		w.Write([]byte(summaryJSON))
	})

	raw, err := yf.Fundamentals(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		field string
		want  float64
	}{
		{models.FieldTrailingPE, 28.5},
		{models.FieldPriceToSales, 7.1},
		{models.FieldPriceToBook, 45.2},
		{models.FieldRevenueGrowth, 0.021},
		{models.FieldEarningsGrowth, 0.11},
		{models.FieldCurrentRatio, 1.07},
	}
	for _, tt := range tests {
		if got, ok := raw.Get(tt.field).Get(); !ok || got != tt.want {
			t.Errorf("%s = %v, want %.3f", tt.field, raw.Get(tt.field), tt.want)
		}
	}
	if raw.Has(models.FieldDebtToEquity) {
		t.Error("expected an empty value object to be skipped")
	}
	if raw.Has("recommendationKey") {
		t.Error("expected non-numeric fields to be skipped")
	}
}

func TestYFinanceSharedCache(t *testing.T) {
	store := infra.NewMemoryStore(infra.StoreOptions{})
	series := models.Series{{Close: 1}}
	if err := infra.SetJSON(store, "hist:MSFT:1y", series); err != nil {
		t.Fatal(err)
	}
	yf := NewYFinance(WithCache(store), WithBaseURL("http://127.0.0.1:0"))
	got, err := yf.History(context.Background(), "MSFT", "")
	if err != nil {
		t.Fatalf("expected a cache hit, got %v", err)
	}
	if len(got) != 1 || got[0].Close != 1 {
		t.Errorf("unexpected cached series %+v", got)
	}
}
