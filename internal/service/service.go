// Package service wires the acquisition layer, the analysis pipeline and the
// persistence components into the operations the CLI and the HTTP API
// expose: analyze, compare, backtest, history and alert watching.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/internal/alerts"
	"github.com/seenimoa/stockscore/internal/backtest"
	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/datasource"
	"github.com/seenimoa/stockscore/internal/history"
	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ErrNoSymbols is returned by Compare when no symbol is given.
var ErrNoSymbols = errors.New("no symbols given")

// ErrUnknownStrategy is returned by Backtest for an unregistered strategy.
var ErrUnknownStrategy = errors.New("unknown strategy")

// EventType classifies a published Event.
type EventType string

const (
	EventAnalysis EventType = "analysis"
	EventAlert    EventType = "alert"
)

// Event is published to subscribers after every analysis and every fired
// alert.
type Event struct {
	Type      EventType `json:"type"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Options override the components New would otherwise build from the
// configuration. Zero fields are built from cfg.
type Options struct {
	Prices       datasource.PriceSource
	Fundamentals datasource.FundamentalsSource
	News         datasource.NewsSource
	Cache        infra.Store
	History      history.Recorder
	Clock        infra.Clock
}

// Service owns the long-lived components of one process.
type Service struct {
	cfg      *config.Config
	clock    infra.Clock
	cache    infra.Store
	agg      *datasource.Aggregator
	analyzer *pipeline.Analyzer
	history  history.Recorder
	alerts   *alerts.FileStore
	watcher  *alerts.Watcher

	mu   sync.RWMutex
	subs []func(Event)
}

// New validates cfg and builds the service. The caller must Close it.
func New(cfg *config.Config, opts Options) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc, err := cfg.ScoringConfig()
	if err != nil {
		return nil, err
	}
	analyzer, err := pipeline.New(sc)
	if err != nil {
		return nil, fmt.Errorf("build analyzer: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = infra.SystemClock
	}

	s := &Service{cfg: cfg, clock: clock, analyzer: analyzer}

	s.cache = opts.Cache
	if s.cache == nil {
		c := cfg.Datasource.Cache
		s.cache, err = infra.OpenStore(c.Backend, c.Dir, infra.StoreOptions{
			TTL:             c.TTL,
			MaxItems:        c.MaxItems,
			CleanupFraction: c.CleanupFraction,
			Clock:           clock,
		})
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}

	limiter := infra.NewLimiter(cfg.Datasource.RateLimit, cfg.Datasource.Burst)
	prices, fundamentals, news := opts.Prices, opts.Fundamentals, opts.News
	if prices == nil || fundamentals == nil {
		yf := datasource.NewYFinance(
			datasource.WithTimeout(cfg.Datasource.Timeout),
			datasource.WithLimiter(limiter),
			datasource.WithCache(s.cache),
		)
		if prices == nil {
			prices = yf
		}
		if fundamentals == nil {
			fundamentals = yf
		}
	}
	if news == nil && cfg.Datasource.News.Enabled {
		news = datasource.NewNews(cfg.Datasource.News.FeedURL, limiter, s.cache)
	}
	s.agg = datasource.NewAggregator(prices, fundamentals, news, clock)

	s.history = opts.History
	if s.history == nil {
		if cfg.Storage.HistoryDB == "" {
			s.history = history.NewNoopRecorder()
		} else {
			rec, err := history.OpenSQLite(cfg.Storage.HistoryDB, clock)
			if err != nil {
				s.cache.Close()
				return nil, fmt.Errorf("open history: %w", err)
			}
			s.history = rec
		}
	}

	s.alerts = alerts.NewFileStore(cfg.Storage.AlertsFile)
	s.watcher = alerts.NewWatcher(s.alerts, alerts.ObserverFunc(s.observe), clock)
	s.watcher.Subscribe(func(ev models.AlertEvent) {
		s.publish(Event{Type: EventAlert, Symbol: ev.Alert.Symbol, Timestamp: ev.Timestamp, Data: ev})
	})

	return s, nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Alerts returns the alert book.
func (s *Service) Alerts() *alerts.FileStore { return s.alerts }

// Watcher returns the alert watcher. It is stopped until Watcher().Start.
func (s *Service) Watcher() *alerts.Watcher { return s.watcher }

// Subscribe registers fn for every published event. fn must not block.
func (s *Service) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Service) publish(ev Event) {
	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Close releases the history database and the cache.
func (s *Service) Close() error {
	return errors.Join(s.history.Close(), s.cache.Close())
}

// ════════════════════════════════════════════════════════════════════
// Analyze
// ════════════════════════════════════════════════════════════════════

// AnalyzeRequest selects one analysis. Empty fields take the configured
// defaults.
type AnalyzeRequest struct {
	Symbol    string
	Benchmark string
	Period    string
	NoNews    bool
	NoHistory bool
}

// Analysis is an analysis result together with the data it was computed
// from.
type Analysis struct {
	Result   models.AnalysisResult `json:"result"`
	Snapshot *datasource.Snapshot  `json:"-"`
	Warnings []string              `json:"warnings,omitempty"`
}

func (s *Service) request(symbol, benchmark, period string, news, fundamentals bool) datasource.Request {
	if benchmark == "" {
		benchmark = s.cfg.Analysis.Benchmark
	}
	if period == "" {
		period = s.cfg.Analysis.Period
	}
	req := datasource.Request{
		Symbol:       symbol,
		Benchmark:    benchmark,
		Period:       period,
		Fundamentals: fundamentals,
	}
	if news && s.cfg.Datasource.News.Enabled {
		req.NewsLimit = s.cfg.Datasource.News.Limit
	}
	return req
}

// Analyze fetches a snapshot, runs the pipeline, records the result in the
// history and publishes an analysis event.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	snap, err := s.agg.Fetch(ctx, s.request(req.Symbol, req.Benchmark, req.Period, !req.NoNews, true))
	if err != nil {
		return nil, err
	}
	in := snap.Input()
	in.RiskFreeRate = s.cfg.Analysis.RiskFreeRate
	res := s.analyzer.Analyze(in)

	if !req.NoHistory {
		s.record(ctx, res)
	}
	s.publish(Event{Type: EventAnalysis, Symbol: res.Symbol, Timestamp: s.clock.Now(), Data: res})
	return &Analysis{Result: res, Snapshot: snap, Warnings: snap.Warnings}, nil
}

func (s *Service) record(ctx context.Context, res models.AnalysisResult) {
	if err := s.history.Append(ctx, res); err != nil {
		log.Warn().Str("component", "service").Str("symbol", res.Symbol).Err(err).Msg("history append failed")
	}
}

// ════════════════════════════════════════════════════════════════════
// Compare
// ════════════════════════════════════════════════════════════════════

// CompareRequest selects a side-by-side comparison.
type CompareRequest struct {
	Symbols   []string
	Benchmark string
	Period    string
	NoHistory bool
	// Progress is called after each pipeline completes.
	Progress func(symbol string)
}

// Compare fetches every symbol concurrently and analyses them side by side.
// Duplicate symbols are analysed once.
func (s *Service) Compare(ctx context.Context, req CompareRequest) (pipeline.Comparison, error) {
	seen := make(map[string]bool)
	var reqs []datasource.Request
	for _, sym := range req.Symbols {
		sym = datasource.NormalizeSymbol(sym)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		reqs = append(reqs, s.request(sym, req.Benchmark, req.Period, false, true))
	}
	if len(reqs) == 0 {
		return pipeline.Comparison{}, ErrNoSymbols
	}

	snaps, err := s.agg.FetchMany(ctx, reqs)
	if err != nil {
		return pipeline.Comparison{}, err
	}
	inputs := make([]pipeline.Input, len(snaps))
	for i, snap := range snaps {
		inputs[i] = snap.Input()
		inputs[i].RiskFreeRate = s.cfg.Analysis.RiskFreeRate
	}

	cmp, err := s.analyzer.Compare(ctx, inputs, req.Progress)
	if err != nil {
		return pipeline.Comparison{}, err
	}
	if !req.NoHistory {
		for _, res := range cmp.Results {
			s.record(ctx, res)
		}
	}
	return cmp, nil
}

// ════════════════════════════════════════════════════════════════════
// Backtest
// ════════════════════════════════════════════════════════════════════

// BacktestRequest selects a walk-forward run. Zero numeric fields take the
// configured defaults; an empty Strategy selects "score".
type BacktestRequest struct {
	Symbol         string
	Benchmark      string
	Period         string
	Strategy       string
	Warmup         int
	Step           int
	InitialCapital float64
}

// Backtest fetches the history of a symbol and replays the pipeline over it.
// News is not replayed.
func (s *Service) Backtest(ctx context.Context, req BacktestRequest) (*models.BacktestResult, error) {
	strategy, ok := backtest.StrategyByName(req.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, req.Strategy)
	}

	snap, err := s.agg.Fetch(ctx, s.request(req.Symbol, req.Benchmark, req.Period, false, true))
	if err != nil {
		return nil, err
	}

	bc := backtest.Config{
		InitialCapital: s.cfg.Backtest.InitialCapital,
		Warmup:         s.cfg.Backtest.Warmup,
		Step:           s.cfg.Backtest.Step,
		RiskFreeRate:   s.cfg.Analysis.RiskFreeRate,
	}
	if req.Warmup > 0 {
		bc.Warmup = req.Warmup
	}
	if req.Step > 0 {
		bc.Step = req.Step
	}
	if req.InitialCapital > 0 {
		bc.InitialCapital = req.InitialCapital
	}

	in := snap.Input()
	in.News = nil
	in.RiskFreeRate = s.cfg.Analysis.RiskFreeRate
	return backtest.NewEngine(s.analyzer, bc).Run(ctx, strategy, in)
}

// ════════════════════════════════════════════════════════════════════
// History and alerts
// ════════════════════════════════════════════════════════════════════

// History returns up to limit recorded analyses of symbol, newest first.
func (s *Service) History(ctx context.Context, symbol string, limit int) ([]history.Entry, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", datasource.ErrTickerNotFound)
	}
	return s.history.Latest(ctx, symbol, limit)
}

// observe fetches the latest prices of symbol and analyses them for the
// alert watcher. Fundamentals and news do not affect any alert type.
func (s *Service) observe(ctx context.Context, symbol string) (alerts.Observation, error) {
	snap, err := s.agg.Fetch(ctx, s.request(symbol, "", "", false, false))
	if err != nil {
		return alerts.Observation{}, err
	}
	in := snap.Input()
	in.RiskFreeRate = s.cfg.Analysis.RiskFreeRate
	res := s.analyzer.Analyze(in)
	return alerts.Observe(snap.Series, res), nil
}

// CheckAlerts evaluates the alert book once.
func (s *Service) CheckAlerts(ctx context.Context) ([]models.AlertEvent, error) {
	return s.watcher.RunOnce(ctx)
}
