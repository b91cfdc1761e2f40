package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/pkg/models"
)

// Request describes one snapshot to acquire.
type Request struct {
	Symbol    string
	Benchmark string
	Period    string
	// NewsLimit > 0 fetches that many headlines.
	NewsLimit int
	// Fundamentals toggles the quoteSummary fetch.
	Fundamentals bool
}

// Snapshot is the immutable result of one fan-out/fan-in acquisition.
type Snapshot struct {
	Symbol          string                 `json:"symbol"`
	Benchmark       string                 `json:"benchmark"`
	Period          string                 `json:"period"`
	Series          models.Series          `json:"series"`
	BenchmarkSeries models.Series          `json:"benchmark_series"`
	Fundamentals    models.RawFundamentals `json:"fundamentals,omitempty"`
	News            []models.NewsArticle   `json:"news,omitempty"`
	FetchedAt       time.Time              `json:"fetched_at"`
	// Warnings lists the non-fatal fetch failures.
	Warnings []string `json:"warnings,omitempty"`
}

// Input converts the snapshot into a pipeline input.
func (s *Snapshot) Input() pipeline.Input {
	return pipeline.Input{
		Symbol:          s.Symbol,
		Benchmark:       s.Benchmark,
		Series:          s.Series,
		BenchmarkSeries: s.BenchmarkSeries,
		Fundamentals:    s.Fundamentals,
		News:            s.News,
		Now:             s.FetchedAt,
	}
}

// Aggregator fetches the independent parts of a snapshot concurrently.
type Aggregator struct {
	prices       PriceSource
	fundamentals FundamentalsSource
	news         NewsSource
	clock        infra.Clock
}

// NewAggregator wires the sources. fundamentals and news may be nil.
func NewAggregator(prices PriceSource, fundamentals FundamentalsSource, news NewsSource, clock infra.Clock) *Aggregator {
	if clock == nil {
		clock = infra.SystemClock
	}
	return &Aggregator{prices: prices, fundamentals: fundamentals, news: news, clock: clock}
}

// Fetch acquires instrument history, benchmark history, fundamentals and
// news in parallel and joins them into one Snapshot. Only a failure of the
// instrument history is fatal; the other failures become warnings.
func (a *Aggregator) Fetch(ctx context.Context, req Request) (*Snapshot, error) {
	symbol := NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrTickerNotFound)
	}
	period, err := ValidatePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Symbol:    symbol,
		Benchmark: NormalizeSymbol(req.Benchmark),
		Period:    period,
	}

	var mu sync.Mutex
	warn := func(part string, err error) {
		log.Warn().Str("component", "aggregator").Str("symbol", symbol).Str("part", part).Err(err).Msg("partial fetch failure")
		mu.Lock()
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: %v", part, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	// 1. Instrument history (fatal).
	g.Go(func() error {
		s, err := a.prices.History(gctx, symbol, period)
		if err != nil {
			return fmt.Errorf("history %s: %w", symbol, err)
		}
		mu.Lock()
		snap.Series = s
		mu.Unlock()
		return nil
	})

	// 2. Benchmark history.
	if snap.Benchmark != "" {
		g.Go(func() error {
			s, err := a.prices.History(gctx, snap.Benchmark, period)
			if err != nil {
				warn("benchmark", err)
				return nil
			}
			mu.Lock()
			snap.BenchmarkSeries = s
			mu.Unlock()
			return nil
		})
	}

	// 3. Fundamentals.
	if req.Fundamentals && a.fundamentals != nil {
		g.Go(func() error {
			f, err := a.fundamentals.Fundamentals(gctx, symbol)
			if err != nil {
				warn("fundamentals", err)
				return nil
			}
			mu.Lock()
			snap.Fundamentals = f
			mu.Unlock()
			return nil
		})
	}

	// 4. News.
	if req.NewsLimit > 0 && a.news != nil {
		g.Go(func() error {
			articles, err := a.news.StockNews(gctx, symbol, req.NewsLimit)
			if err != nil {
				warn("news", err)
				return nil
			}
			mu.Lock()
			snap.News = articles
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = a.clock.Now()
	return snap, nil
}

// FetchMany fetches one snapshot per request concurrently, preserving order.
// Any fatal failure aborts the batch.
func (a *Aggregator) FetchMany(ctx context.Context, reqs []Request) ([]*Snapshot, error) {
	out := make([]*Snapshot, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range reqs {
		g.Go(func() error {
			s, err := a.Fetch(gctx, r)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
