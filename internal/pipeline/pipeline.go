// Package pipeline runs the analysis core end to end: indicators, risk,
// fundamentals, patterns and scoring over one immutable input snapshot.
//
// Each stage takes the previous stage's value and returns a new one, so no
// stage can observe a partially built result.
package pipeline

import (
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/internal/analysis/fundamental"
	"github.com/seenimoa/stockscore/internal/analysis/pattern"
	"github.com/seenimoa/stockscore/internal/analysis/risk"
	"github.com/seenimoa/stockscore/internal/analysis/sentiment"
	"github.com/seenimoa/stockscore/internal/analysis/technical"
	"github.com/seenimoa/stockscore/internal/scoring"
	"github.com/seenimoa/stockscore/pkg/models"
)

// Input is a complete snapshot for one instrument.
type Input struct {
	Symbol          string
	Benchmark       string
	Series          models.Series
	BenchmarkSeries models.Series
	Fundamentals    models.RawFundamentals
	// RiskFreeRate overrides the configured annual rate when non-zero.
	RiskFreeRate float64
	// News is scored for the informational news sentiment block.
	News []models.NewsArticle
	// Now is the reference time for news decay. Zero means the last bar.
	Now time.Time
}

// Analyzer runs the pipeline with a fixed configuration. It is safe for
// concurrent use.
type Analyzer struct {
	engine *scoring.Engine
	cfg    scoring.Config
}

// New validates cfg and returns an Analyzer.
func New(cfg scoring.Config) (*Analyzer, error) {
	engine, err := scoring.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Analyzer{engine: engine, cfg: cfg}, nil
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() scoring.Config { return a.cfg }

type prepared struct {
	in   Input
	last models.OHLCV
}

type withIndicators struct {
	prepared
	frame models.IndicatorFrame
}

type withRisk struct {
	withIndicators
	risk models.RiskMetrics
}

type withFundamentals struct {
	withRisk
	ratios  models.FundamentalRatios
	metrics models.FundamentalMetrics
}

type withPatterns struct {
	withFundamentals
	report pattern.Report
}

// Analyze runs every stage for in. It always returns a result; structural
// problems with the input produce an Unable recommendation.
func (a *Analyzer) Analyze(in Input) models.AnalysisResult {
	if len(in.Series) == 0 {
		return unable(in, scoring.ReasonNoData)
	}
	p, err := prepare(in)
	if err != nil {
		log.Warn().Str("component", "pipeline").Str("symbol", in.Symbol).Err(err).Msg("input rejected")
		return unable(in, err.Error())
	}

	s := a.patterns(a.fundamentals(a.risk(a.indicators(p))))
	return a.score(s)
}

func prepare(in Input) (prepared, error) {
	last, _ := in.Series.Last()
	if err := in.Series.Validate(); err != nil {
		return prepared{}, fmt.Errorf("instrument series: %w", err)
	}
	if err := in.BenchmarkSeries.Validate(); err != nil {
		// only the risk metrics depend on the benchmark
		log.Warn().Str("component", "pipeline").Str("symbol", in.Symbol).Str("benchmark", in.Benchmark).Err(err).Msg("benchmark series rejected")
		in.BenchmarkSeries = nil
	}
	return prepared{in: in, last: last}, nil
}

func (a *Analyzer) indicators(p prepared) withIndicators {
	return withIndicators{
		prepared: p,
		frame:    technical.ComputeFrame(p.in.Series, a.cfg.Periods),
	}
}

func (a *Analyzer) risk(s withIndicators) withRisk {
	rate := a.cfg.RiskFreeRate
	if s.in.RiskFreeRate != 0 {
		rate = s.in.RiskFreeRate
	}
	return withRisk{
		withIndicators: s,
		risk:           risk.NewCalculator(rate).Compute(s.in.Series, s.in.BenchmarkSeries),
	}
}

func (a *Analyzer) fundamentals(s withRisk) withFundamentals {
	ratios := fundamental.Analyze(s.in.Fundamentals)
	return withFundamentals{
		withRisk: s,
		ratios:   ratios,
		metrics:  fundamental.Metrics(s.in.Fundamentals, ratios),
	}
}

func (a *Analyzer) patterns(s withFundamentals) withPatterns {
	return withPatterns{
		withFundamentals: s,
		report:           pattern.Analyze(s.in.Series, s.frame),
	}
}

func (a *Analyzer) score(s withPatterns) models.AnalysisResult {
	res := a.engine.Evaluate(scoring.Inputs{
		LastClose:    s.last.Close,
		Frame:        s.frame,
		Risk:         s.risk,
		Fundamentals: s.metrics,
		Sentiment:    s.report.Sentiment,
		Trend:        s.report.Trend,
	})

	now := s.in.Now
	if now.IsZero() {
		now = s.last.Timestamp
	}

	return models.AnalysisResult{
		Symbol:         s.in.Symbol,
		Benchmark:      s.in.Benchmark,
		AsOf:           s.last.Day(),
		LastClose:      s.last.Close,
		Score:          res.Score,
		Recommendation: res.Recommendation,
		Breakdown:      res.Breakdown,
		Reasons:        res.Reasons,
		Indicators: models.IndicatorSnapshot{
			RSI:      s.frame.Latest(models.IndRSI),
			MACD:     s.frame.Latest(models.IndMACD),
			MACDHist: s.frame.Latest(models.IndMACDHist),
			ATR:      s.frame.Latest(models.IndATR),
		},
		Risk:         s.risk,
		Fundamentals: s.metrics,
		Ratios:       s.ratios,
		Sentiment:    s.report.Sentiment,
		Trend:        s.report.Trend,
		Patterns:     s.report.Patterns,
		Levels:       s.report.Levels,
		NextDay:      PredictNextDay(s.in.Series),
		News:         sentiment.Analyze(s.in.News, now),
	}
}

func unable(in Input, reason string) models.AnalysisResult {
	res := scoring.Unavailable(reason)
	report := pattern.NeutralReport()
	return models.AnalysisResult{
		Symbol:         in.Symbol,
		Benchmark:      in.Benchmark,
		Score:          res.Score,
		Recommendation: res.Recommendation,
		Reasons:        res.Reasons,
		Patterns:       report.Patterns,
		Levels:         report.Levels,
	}
}
