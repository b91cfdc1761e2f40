// Package backtest replays the analysis pipeline over history: from a warmup
// bar onwards it re-analyses the series prefix every few bars and trades a
// single long position on the resulting recommendations.
package backtest

import (
	"context"
	"fmt"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Engine Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds all parameters for a backtest run.
type Config struct {
	InitialCapital float64 // starting capital (default: 100,000)
	Warmup         int     // first bar analysed (default: 20)
	Step           int     // bars between analyses (default: 5)
	RiskFreeRate   float64 // annual rate for the equity Sharpe (default: 0.04)
}

// DefaultConfig returns the standard walk-forward parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		Warmup:         20,
		Step:           5,
		RiskFreeRate:   0.04,
	}
}

// Analyzer is the part of pipeline.Analyzer the engine needs.
type Analyzer interface {
	Analyze(in pipeline.Input) models.AnalysisResult
}

// ════════════════════════════════════════════════════════════════════
// Engine: Walk-Forward Backtesting
// ════════════════════════════════════════════════════════════════════

// Engine runs a Strategy over successive prefixes of a series.
type Engine struct {
	cfg      Config
	analyzer Analyzer
}

// NewEngine creates a backtesting engine. Non-positive settings fall back
// to DefaultConfig.
func NewEngine(analyzer Analyzer, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = def.InitialCapital
	}
	if cfg.Warmup <= 0 {
		cfg.Warmup = def.Warmup
	}
	if cfg.Step <= 0 {
		cfg.Step = def.Step
	}
	if cfg.RiskFreeRate <= 0 {
		cfg.RiskFreeRate = def.RiskFreeRate
	}
	return &Engine{cfg: cfg, analyzer: analyzer}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// ledger tracks cash and the open quantity in exact decimal arithmetic.
type ledger struct {
	cash decimal.Decimal
	qty  decimal.Decimal
}

func (l *ledger) equity(price float64) decimal.Decimal {
	return l.cash.Add(l.qty.Mul(decimal.NewFromFloat(price)))
}

// buy spends all cash at price.
func (l *ledger) buy(price float64) {
	l.qty = l.cash.Div(decimal.NewFromFloat(price))
	l.cash = decimal.Zero
}

// sell liquidates the position at price and returns the quantity sold and
// the realised P&L against entry.
func (l *ledger) sell(price, entry float64) (decimal.Decimal, decimal.Decimal) {
	qty := l.qty
	proceeds := qty.Mul(decimal.NewFromFloat(price))
	pnl := proceeds.Sub(qty.Mul(decimal.NewFromFloat(entry)))
	l.cash = l.cash.Add(proceeds)
	l.qty = decimal.Zero
	return qty, pnl
}

// Run executes strategy over in.Series. Bar i is analysed with the prefix
// series[:i+1] and the benchmark cut at the same day, so no decision sees
// later data. News is not replayed. An open position at the end is marked
// to the last close and reported as an open trade.
func (e *Engine) Run(ctx context.Context, strategy Strategy, in pipeline.Input) (*models.BacktestResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is nil")
	}
	if e.analyzer == nil {
		return nil, fmt.Errorf("analyzer is nil")
	}
	bars := in.Series
	if err := bars.Validate(); err != nil {
		return nil, fmt.Errorf("backtest series: %w", err)
	}
	if len(bars) <= e.cfg.Warmup {
		return nil, &models.InsufficientDataError{Op: "backtest", Need: e.cfg.Warmup + 1, Have: len(bars)}
	}

	book := &ledger{cash: decimal.NewFromFloat(e.cfg.InitialCapital)}
	var (
		open        *position
		trades      = make([]models.BacktestTrade, 0)
		equity      = make([]models.EquityPoint, 0, len(bars)-e.cfg.Warmup)
		evaluations int
	)

	for i := e.cfg.Warmup; i < len(bars); i++ {
		bar := bars[i]
		if (i-e.cfg.Warmup)%e.cfg.Step == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res := e.analyzer.Analyze(pipeline.Input{
				Symbol:          in.Symbol,
				Benchmark:       in.Benchmark,
				Series:          bars[:i+1],
				BenchmarkSeries: in.BenchmarkSeries.Until(bar.Timestamp),
				Fundamentals:    in.Fundamentals,
				RiskFreeRate:    in.RiskFreeRate,
				Now:             bar.Timestamp,
			})
			evaluations++

			switch {
			case open == nil && strategy.Enter(res):
				book.buy(bar.Close)
				open = &position{
					entryIdx:    i,
					entryPrice:  bar.Close,
					entryScore:  res.Score.Or(0),
					entrySignal: res.Recommendation,
				}
				log.Debug().Str("component", "backtest").Str("symbol", in.Symbol).
					Time("date", bar.Timestamp).Float64("price", bar.Close).
					Str("signal", string(res.Recommendation)).Msg("enter")
			case open != nil:
				if reason, ok := strategy.Exit(res, open.returnPct(bar.Close)); ok {
					trades = append(trades, e.closeTrade(book, open, bars, i, res.Recommendation, reason, false))
					log.Debug().Str("component", "backtest").Str("symbol", in.Symbol).
						Time("date", bar.Timestamp).Float64("price", bar.Close).Str("reason", reason).Msg("exit")
					open = nil
				}
			}
		}

		equity = append(equity, models.EquityPoint{
			Date:  bar.Timestamp,
			Value: book.equity(bar.Close).InexactFloat64(),
		})
	}

	last := len(bars) - 1
	if open != nil {
		trades = append(trades, e.closeTrade(book, open, bars, last, "", ExitEndOfData, true))
	}

	result := &models.BacktestResult{
		Symbol:         in.Symbol,
		Benchmark:      in.Benchmark,
		From:           bars[e.cfg.Warmup].Timestamp,
		To:             bars[last].Timestamp,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   book.equity(bars[last].Close).InexactFloat64(),
		BuyHoldPct:     (bars[last].Close/bars[0].Close - 1) * 100,
		Evaluations:    evaluations,
		Trades:         trades,
		EquityCurve:    equity,
	}
	ComputeMetrics(result, e.cfg.RiskFreeRate)
	return result, nil
}

func (e *Engine) closeTrade(book *ledger, p *position, bars models.Series, i int, signal models.Recommendation, reason string, open bool) models.BacktestTrade {
	exit := bars[i]
	qty, pnl := book.sell(exit.Close, p.entryPrice)
	return models.BacktestTrade{
		EntryDate:   bars[p.entryIdx].Timestamp,
		ExitDate:    exit.Timestamp,
		EntryPrice:  p.entryPrice,
		ExitPrice:   exit.Close,
		Quantity:    qty.InexactFloat64(),
		PnL:         pnl.InexactFloat64(),
		ReturnPct:   p.returnPct(exit.Close),
		EntryScore:  p.entryScore,
		EntrySignal: p.entrySignal,
		ExitSignal:  signal,
		ExitReason:  reason,
		Open:        open,
	}
}
