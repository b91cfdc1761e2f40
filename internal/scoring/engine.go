package scoring

import (
	"fmt"

	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/internal/analysis/pattern"
	"github.com/seenimoa/stockscore/pkg/models"
)

// Category point budgets.
const (
	technicalBudget   = 30.0
	riskBudget        = 25.0
	fundamentalBudget = 25.0
	sentimentBudget   = 20.0

	strongTrendADX   = 25.0
	strongAroonTrend = 50.0
)

// Failure reasons reported with an Unable recommendation.
const (
	ReasonNoData     = "no price data available for analysis"
	ReasonEvalFailed = "error calculating final score"
)

// Inputs are the upstream results the engine evaluates.
type Inputs struct {
	LastClose    float64
	Frame        models.IndicatorFrame
	Risk         models.RiskMetrics
	Fundamentals models.FundamentalMetrics
	Sentiment    models.SentimentSnapshot
	Trend        models.TrendStrength
}

// Result is the engine output.
type Result struct {
	Score          models.Value
	Recommendation models.Recommendation
	Breakdown      models.ScoreBreakdown
	Reasons        []string
}

// Engine applies the weighted rule set. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Unavailable builds an Unable result with a single reason.
func Unavailable(reason string) Result {
	return Result{
		Score:          models.Undefined(),
		Recommendation: models.Unable,
		Reasons:        []string{reason},
	}
}

// Evaluate scores in. Undefined inputs skip their rule. It never panics.
func (e *Engine) Evaluate(in Inputs) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := &models.ComputationError{Component: "scoring", Cause: r}
			log.Error().Err(err).Msg("scoring failed")
			res = Unavailable(ReasonEvalFailed)
		}
	}()

	if in.Frame.Len == 0 {
		return Unavailable(ReasonNoData)
	}

	var reasons []string
	note := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	b := models.ScoreBreakdown{
		Technical:   technicalPoints(in, note) / technicalBudget,
		Risk:        riskPoints(in.Risk, note) / riskBudget,
		Fundamental: fundamentalPoints(in.Fundamentals, note) / fundamentalBudget,
		Sentiment:   sentimentPoints(in, note) / sentimentBudget,
	}

	w := e.cfg.Weights
	final := b.Technical*w.Technical +
		b.Risk*w.Risk +
		b.Fundamental*w.Fundamental +
		b.Sentiment*w.Sentiment

	if reasons == nil {
		reasons = []string{}
	}
	return Result{
		Score:          models.Of(final),
		Recommendation: Recommend(final, e.cfg.Thresholds),
		Breakdown:      b,
		Reasons:        reasons,
	}
}

type noteFunc func(format string, args ...any)

func technicalPoints(in Inputs, note noteFunc) float64 {
	pts := 0.0

	if rsi, ok := in.Frame.Latest(models.IndRSI).Get(); ok {
		switch {
		case rsi >= 40 && rsi <= 60:
			pts += 5
			note("balanced RSI (%.1f)", rsi)
		case rsi >= 30 && rsi <= 70:
			pts += 3
		default:
			pts++
		}
	}

	macd, okM := in.Frame.Latest(models.IndMACD).Get()
	signal, okS := in.Frame.Latest(models.IndMACDSignal).Get()
	if okM && okS && macd > signal {
		pts += 10
		note("positive MACD signal")
	}

	lower, okL := in.Frame.Latest(models.IndBBLower).Get()
	upper, okU := in.Frame.Latest(models.IndBBUpper).Get()
	if okL && okU && lower < in.LastClose && in.LastClose < upper {
		pts += 5
		note("price inside Bollinger bands")
	}

	if in.Trend.ADXStrength > strongTrendADX {
		if in.Trend.AroonTrend > 0 {
			pts += 10
			note("strong positive trend (ADX %.1f)", in.Trend.ADXStrength)
		} else {
			pts -= 10
			note("strong negative trend (ADX %.1f)", in.Trend.ADXStrength)
		}
	}
	return pts
}

func riskPoints(r models.RiskMetrics, note noteFunc) float64 {
	pts := 0.0

	if beta, ok := r.Beta.Get(); ok {
		switch {
		case beta >= 0.7 && beta <= 1.3:
			pts += 10
			note("balanced beta (%.2f)", beta)
		case beta < 0.7:
			pts += 5
			note("lower relative risk than the market (beta %.2f)", beta)
		}
	}

	if sharpe, ok := r.Sharpe.Get(); ok {
		switch {
		case sharpe > 1:
			pts += 10
			note("positive Sharpe ratio (%.2f)", sharpe)
		case sharpe > 0:
			pts += 5
		}
	}

	if dd, ok := r.MaxDrawdown.Get(); ok && dd > -0.2 {
		pts += 5
		note("moderate maximum drawdown (%.1f%%)", dd*100)
	}
	return pts
}

func fundamentalPoints(f models.FundamentalMetrics, note noteFunc) float64 {
	pts := 0.0

	if pe, ok := f.PERatio.Get(); ok && pe > 5 && pe < 25 {
		pts += 5
		note("reasonable PE ratio (%.1f)", pe)
	}
	if pb, ok := f.PBRatio.Get(); ok && pb > 0.5 && pb < 3 {
		pts += 5
		note("reasonable PB ratio (%.1f)", pb)
	}
	if g, ok := f.RevenueGrowth.Get(); ok && g > 0.10 {
		pts += 5
		note("revenue growth (%.1f%%)", g*100)
	}
	if g, ok := f.EarningsGrowth.Get(); ok && g > 0.10 {
		pts += 5
		note("earnings growth (%.1f%%)", g*100)
	}
	if cr, ok := f.CurrentRatio.Get(); ok && cr > 1.5 {
		pts += 5
		note("financial stability (current ratio %.2f)", cr)
	}
	return pts
}

func sentimentPoints(in Inputs, note noteFunc) float64 {
	pts := 0.0
	s := in.Sentiment

	switch {
	case s.Overbought:
		note("RSI overbought above %.0f, no neutral sentiment points", pattern.OverboughtRSI)
	case s.Oversold:
		note("RSI oversold below %.0f, no neutral sentiment points", pattern.OversoldRSI)
	default:
		pts += 5
	}

	if s.VolumeTrend > 0.1 {
		pts += 5
		note("rising volume (%+.0f%%)", s.VolumeTrend*100)
	}

	if in.Trend.ADXStrength > strongTrendADX && in.Trend.AroonTrend > strongAroonTrend {
		pts += 10
		note("strong positive trend confirmed by Aroon (%.0f)", in.Trend.AroonTrend)
	}
	return pts
}

// Recommend maps a final score to a recommendation.
func Recommend(score float64, t Thresholds) models.Recommendation {
	switch {
	case score > t.StrongBuy:
		return models.StrongBuy
	case score > t.Buy:
		return models.Buy
	case score < t.Sell:
		return models.Sell
	case score < t.Hold:
		return models.Hold
	default:
		return models.Watch
	}
}
