package backtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/internal/scoring"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var base = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// linearBars creates n daily bars whose close is start + slope*i.
func linearBars(n int, start, slope float64) models.Series {
	bars := make(models.Series, n)
	for i := range bars {
		price := start + slope*float64(i)
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    100000,
		}
	}
	return bars
}

func result(rec models.Recommendation, score float64) models.AnalysisResult {
	return models.AnalysisResult{Recommendation: rec, Score: models.Of(score)}
}

// scriptedAnalyzer returns results keyed by the length of the analysed
// prefix and Hold/0.5 otherwise.
type scriptedAnalyzer struct {
	byLen  map[int]models.AnalysisResult
	inputs []pipeline.Input
}

func (a *scriptedAnalyzer) Analyze(in pipeline.Input) models.AnalysisResult {
	a.inputs = append(a.inputs, in)
	if r, ok := a.byLen[len(in.Series)]; ok {
		return r
	}
	return result(models.Hold, 0.5)
}

func run(t *testing.T, a Analyzer, s Strategy, bars models.Series) *models.BacktestResult {
	t.Helper()
	eng := NewEngine(a, Config{})
	res, err := eng.Run(context.Background(), s, pipeline.Input{
		Symbol:          "TEST",
		Benchmark:       "^IDX",
		Series:          bars,
		BenchmarkSeries: bars,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// ════════════════════════════════════════════════════════════════════
// Engine
// ════════════════════════════════════════════════════════════════════

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InitialCapital != 100000 {
		t.Errorf("expected 100000 capital, got %f", cfg.InitialCapital)
	}
	if cfg.Warmup != 20 || cfg.Step != 5 {
		t.Errorf("expected warmup 20 step 5, got %d/%d", cfg.Warmup, cfg.Step)
	}
}

func TestNewEngine_defaults(t *testing.T) {
	eng := NewEngine(&scriptedAnalyzer{}, Config{InitialCapital: -1, Step: -3})
	cfg := eng.Config()
	if cfg.InitialCapital != 100000 || cfg.Step != 5 || cfg.Warmup != 20 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestEngine_Errors(t *testing.T) {
	eng := NewEngine(&scriptedAnalyzer{}, Config{})
	ctx := context.Background()

	if _, err := eng.Run(ctx, nil, pipeline.Input{Series: linearBars(30, 100, 1)}); err == nil {
		t.Error("expected error for nil strategy")
	}

	_, err := eng.Run(ctx, NewScoreStrategy(DefaultRules()), pipeline.Input{Series: linearBars(20, 100, 1)})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}

	bars := linearBars(30, 100, 1)
	bars[3], bars[4] = bars[4], bars[3]
	if _, err := eng.Run(ctx, NewScoreStrategy(DefaultRules()), pipeline.Input{Series: bars}); !errors.Is(err, models.ErrUnsortedSeries) {
		t.Errorf("expected ErrUnsortedSeries, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := eng.Run(canceled, NewScoreStrategy(DefaultRules()), pipeline.Input{Series: linearBars(30, 100, 1)}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEngine_DoNothing(t *testing.T) {
	a := &scriptedAnalyzer{}
	bars := linearBars(50, 100, 1)
	res := run(t, a, NewScoreStrategy(DefaultRules()), bars)

	if res.TotalTrades != 0 || len(res.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(res.Trades))
	}
	if res.FinalCapital != 100000 {
		t.Errorf("expected untouched capital, got %f", res.FinalCapital)
	}
	// i = 20, 25, ..., 45
	if res.Evaluations != 6 {
		t.Errorf("expected 6 evaluations, got %d", res.Evaluations)
	}
	if len(res.EquityCurve) != 30 {
		t.Errorf("expected one equity point per bar after warmup, got %d", len(res.EquityCurve))
	}
	if !approx(res.BuyHoldPct, 49) {
		t.Errorf("expected buy & hold 49%%, got %f", res.BuyHoldPct)
	}
	if !res.From.Equal(bars[20].Timestamp) || !res.To.Equal(bars[49].Timestamp) {
		t.Errorf("unexpected range %v - %v", res.From, res.To)
	}
}

func TestEngine_NoLookAhead(t *testing.T) {
	a := &scriptedAnalyzer{}
	bars := linearBars(40, 100, 1)
	bench := linearBars(45, 50, 1)

	eng := NewEngine(a, Config{})
	_, err := eng.Run(context.Background(), NewScoreStrategy(DefaultRules()), pipeline.Input{
		Symbol: "TEST", Series: bars, BenchmarkSeries: bench, RiskFreeRate: 0.05,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range a.inputs {
		last, _ := in.Series.Last()
		benchLast, _ := in.BenchmarkSeries.Last()
		if benchLast.Timestamp.After(last.Timestamp) {
			t.Errorf("benchmark leaks data: %v after %v", benchLast.Timestamp, last.Timestamp)
		}
		if !in.Now.Equal(last.Timestamp) {
			t.Errorf("expected Now at the analysed bar, got %v", in.Now)
		}
		if in.RiskFreeRate != 0.05 || in.News != nil {
			t.Errorf("unexpected passthrough fields %+v", in)
		}
	}
	if got := len(a.inputs[0].Series); got != 21 {
		t.Errorf("expected first prefix of 21 bars, got %d", got)
	}
}

func TestEngine_TakeProfit(t *testing.T) {
	a := &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{21: result(models.Buy, 0.65)}}
	res := run(t, a, NewScoreStrategy(DefaultRules()), linearBars(50, 100, 1))

	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	// Entry at 120; checks at 125, 130, 135 stay below +15%; 140 exits.
	if tr.EntryPrice != 120 || tr.ExitPrice != 140 {
		t.Errorf("expected 120 -> 140, got %f -> %f", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.ExitReason != ExitTakeProfit || tr.Open {
		t.Errorf("expected closed take-profit trade, got %q open=%v", tr.ExitReason, tr.Open)
	}
	if !approx(tr.ReturnPct, 50.0/3) {
		t.Errorf("expected 16.667%% return, got %f", tr.ReturnPct)
	}
	if !approx(tr.PnL, 100000.0/6) {
		t.Errorf("expected PnL 16666.67, got %f", tr.PnL)
	}
	if tr.EntrySignal != models.Buy || tr.EntryScore != 0.65 {
		t.Errorf("unexpected entry metadata %+v", tr)
	}
	if !approx(res.FinalCapital, 100000*140.0/120) {
		t.Errorf("expected final capital 116666.67, got %f", res.FinalCapital)
	}
	if res.TotalTrades != 1 || res.WinningTrades != 1 || res.WinRate != 100 {
		t.Errorf("unexpected trade stats %+v", res)
	}
	if !approx(res.SystemReturnPct, 50.0/3) {
		t.Errorf("expected system return 16.667, got %f", res.SystemReturnPct)
	}
}

func TestEngine_StopLossOnScoreEntry(t *testing.T) {
	// Watch with a score above 0.6 still enters.
	a := &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{21: result(models.Watch, 0.65)}}
	res := run(t, a, NewScoreStrategy(DefaultRules()), linearBars(50, 200, -1))

	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	// 180 -> 175 (-2.8%) -> 170 (-5.6%)
	if tr.ExitReason != ExitStopLoss || tr.ExitPrice != 170 {
		t.Errorf("expected stop loss at 170, got %q at %f", tr.ExitReason, tr.ExitPrice)
	}
	if res.LosingTrades != 1 || res.AvgLossPct <= 5 {
		t.Errorf("unexpected loss stats %+v", res)
	}
	if res.MaxDrawdownPct <= 0 {
		t.Error("expected a positive drawdown")
	}
}

func TestEngine_ExitPrecedence(t *testing.T) {
	a := &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{
		21: result(models.StrongBuy, 0.8),
		26: result(models.Sell, 0.1),
	}}
	res := run(t, a, NewScoreStrategy(DefaultRules()), linearBars(40, 100, 1))
	if len(res.Trades) != 1 || res.Trades[0].ExitReason != ExitSellSignal {
		t.Fatalf("expected a sell-signal exit, got %+v", res.Trades)
	}
	if res.Trades[0].ExitSignal != models.Sell {
		t.Errorf("expected exit signal SELL, got %s", res.Trades[0].ExitSignal)
	}

	a = &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{
		21: result(models.StrongBuy, 0.8),
		26: result(models.Hold, 0.35),
	}}
	res = run(t, a, NewScoreStrategy(DefaultRules()), linearBars(40, 100, 1))
	if len(res.Trades) != 1 || res.Trades[0].ExitReason != ExitLowScore {
		t.Fatalf("expected a low-score exit, got %+v", res.Trades)
	}
}

func TestEngine_MarksOpenPosition(t *testing.T) {
	a := &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{41: result(models.Buy, 0.65)}}
	res := run(t, a, NewScoreStrategy(DefaultRules()), linearBars(45, 100, 1))

	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	tr := res.Trades[0]
	if !tr.Open || tr.ExitReason != ExitEndOfData || tr.ExitPrice != 144 {
		t.Errorf("expected open trade marked at 144, got %+v", tr)
	}
	if res.TotalTrades != 0 || res.SystemReturnPct != 0 {
		t.Errorf("expected open trades to be excluded from stats, got %d / %f", res.TotalTrades, res.SystemReturnPct)
	}
	if !approx(res.FinalCapital, 100000*144.0/140) {
		t.Errorf("expected marked capital, got %f", res.FinalCapital)
	}
}

func TestEngine_ReEntersAfterExit(t *testing.T) {
	a := &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{
		21: result(models.Buy, 0.65),
		26: result(models.Sell, 0.2),
		31: result(models.Buy, 0.65),
		36: result(models.Sell, 0.2),
	}}
	res := run(t, a, NewScoreStrategy(DefaultRules()), linearBars(40, 100, 1))
	if res.TotalTrades != 2 {
		t.Fatalf("expected 2 trades, got %d", res.TotalTrades)
	}
	want := (125.0/120-1)*100 + (135.0/130-1)*100
	if !approx(res.SystemReturnPct, want) {
		t.Errorf("expected summed returns %f, got %f", want, res.SystemReturnPct)
	}
}

func TestEngine_WithPipeline(t *testing.T) {
	an, err := pipeline.New(scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bars := linearBars(60, 100, 1)
	res := run(t, an, NewScoreStrategy(DefaultRules()), bars)
	// i = 20, 25, ..., 55
	if res.Evaluations != 8 {
		t.Errorf("expected 8 evaluations, got %d", res.Evaluations)
	}
	if res.FinalCapital <= 0 {
		t.Errorf("expected positive capital, got %f", res.FinalCapital)
	}
}

// ════════════════════════════════════════════════════════════════════
// Strategies
// ════════════════════════════════════════════════════════════════════

func TestStrategyByName(t *testing.T) {
	for _, name := range []string{"", "score", "signal"} {
		if _, ok := StrategyByName(name); !ok {
			t.Errorf("expected strategy %q", name)
		}
	}
	if _, ok := StrategyByName("martingale"); ok {
		t.Error("expected unknown strategy")
	}
}

func TestSignalStrategy(t *testing.T) {
	s := NewSignalStrategy(DefaultRules())
	if s.Enter(result(models.Watch, 0.69)) {
		t.Error("signal strategy should ignore the score")
	}
	if !s.Enter(result(models.StrongBuy, 0.1)) {
		t.Error("expected entry on StrongBuy")
	}
	if reason, ok := s.Exit(result(models.WeakSell, 0.5), 0); !ok || reason != ExitSellSignal {
		t.Errorf("expected exit on WeakSell, got %q %v", reason, ok)
	}
	if _, ok := s.Exit(result(models.Hold, 0.1), 0); ok {
		t.Error("signal strategy should not exit on a low score")
	}
}

func TestExitOnReturnBoundaries(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		ret    float64
		reason string
		ok     bool
	}{
		{-5, ExitStopLoss, true},
		{-4.99, "", false},
		{14.99, "", false},
		{15, ExitTakeProfit, true},
	}
	for _, tt := range tests {
		reason, ok := exitOnReturn(r, tt.ret)
		if ok != tt.ok || reason != tt.reason {
			t.Errorf("exitOnReturn(%v) = %q, %v; want %q, %v", tt.ret, reason, ok, tt.reason, tt.ok)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Metrics
// ════════════════════════════════════════════════════════════════════

func TestComputeMetrics_Nil(t *testing.T) {
	ComputeMetrics(nil, 0.04) // must not panic
}

func TestComputeTradeStats(t *testing.T) {
	r := &models.BacktestResult{Trades: []models.BacktestTrade{
		{PnL: 100, ReturnPct: 10},
		{PnL: -50, ReturnPct: -5},
		{PnL: 200, ReturnPct: 20},
		{PnL: -25, ReturnPct: -2.5},
		{PnL: 999, ReturnPct: 99, Open: true},
	}}
	computeTradeStats(r)

	if r.TotalTrades != 4 || r.WinningTrades != 2 || r.LosingTrades != 2 {
		t.Errorf("unexpected counts %d/%d/%d", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	}
	if r.WinRate != 50 {
		t.Errorf("expected win rate 50, got %f", r.WinRate)
	}
	if !approx(r.SystemReturnPct, 22.5) {
		t.Errorf("expected system return 22.5, got %f", r.SystemReturnPct)
	}
	if !approx(r.AvgWinPct, 15) || !approx(r.AvgLossPct, 3.75) {
		t.Errorf("unexpected averages %f / %f", r.AvgWinPct, r.AvgLossPct)
	}
	if !approx(r.ProfitFactor, 4) {
		t.Errorf("expected profit factor 4, got %f", r.ProfitFactor)
	}
}

func TestComputeTradeStats_AllWins(t *testing.T) {
	r := &models.BacktestResult{Trades: []models.BacktestTrade{{PnL: 10, ReturnPct: 1}}}
	computeTradeStats(r)
	if r.ProfitFactor != 0 {
		t.Errorf("expected profit factor 0 without losses, got %f", r.ProfitFactor)
	}
}

func TestComputeDrawdown(t *testing.T) {
	r := &models.BacktestResult{EquityCurve: []models.EquityPoint{
		{Value: 100}, {Value: 120}, {Value: 90}, {Value: 130}, {Value: 117},
	}}
	computeDrawdown(r)
	if !approx(r.MaxDrawdownPct, 25) {
		t.Errorf("expected 25%% drawdown, got %f", r.MaxDrawdownPct)
	}

	empty := &models.BacktestResult{}
	computeDrawdown(empty)
	if empty.MaxDrawdownPct != 0 {
		t.Error("expected 0 drawdown for an empty curve")
	}
}

func TestComputeSharpe(t *testing.T) {
	r := &models.BacktestResult{EquityCurve: []models.EquityPoint{
		{Value: 100}, {Value: 101}, {Value: 103}, {Value: 102}, {Value: 105},
	}}
	computeSharpe(r, 0.04)
	if r.SharpeRatio <= 0 {
		t.Errorf("expected positive Sharpe, got %f", r.SharpeRatio)
	}

	flat := &models.BacktestResult{EquityCurve: []models.EquityPoint{{Value: 100}, {Value: 100}}}
	computeSharpe(flat, 0.04)
	if flat.SharpeRatio != 0 {
		t.Errorf("expected 0 Sharpe with too few returns, got %f", flat.SharpeRatio)
	}
}

func TestDailyReturns(t *testing.T) {
	got := dailyReturns([]models.EquityPoint{{Value: 100}, {Value: 110}, {Value: 99}})
	if len(got) != 2 || !approx(got[0], 0.1) || !approx(got[1], -0.1) {
		t.Errorf("unexpected returns %v", got)
	}
	if dailyReturns(nil) != nil {
		t.Error("expected nil for an empty curve")
	}
}

func TestStddev(t *testing.T) {
	if got := stddev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); !approx(got, math.Sqrt(32.0/7)) {
		t.Errorf("expected sample stddev, got %f", got)
	}
	if stddev([]float64{1}) != 0 {
		t.Error("expected 0 for a single value")
	}
}

func TestStreaksAndMedian(t *testing.T) {
	trades := []models.BacktestTrade{
		{PnL: 1, ReturnPct: 1}, {PnL: 2, ReturnPct: 2}, {PnL: -1, ReturnPct: -1},
		{PnL: 3, ReturnPct: 3}, {PnL: -2, ReturnPct: -2}, {PnL: -3, ReturnPct: -3},
	}
	if got := MaxConsecutiveWins(trades); got != 2 {
		t.Errorf("expected win streak 2, got %d", got)
	}
	if got := MaxConsecutiveLosses(trades); got != 2 {
		t.Errorf("expected loss streak 2, got %d", got)
	}
	if got := MedianReturnPct(trades); got != 0 {
		t.Errorf("expected median 0, got %f", got)
	}
	if MedianReturnPct(nil) != 0 || AverageHoldingPeriod(nil) != 0 {
		t.Error("expected zero for no trades")
	}
}

func TestAverageHoldingPeriod(t *testing.T) {
	trades := []models.BacktestTrade{
		{EntryDate: base, ExitDate: base.AddDate(0, 0, 10)},
		{EntryDate: base, ExitDate: base.AddDate(0, 0, 20)},
	}
	if got := AverageHoldingPeriod(trades); !approx(got, 15) {
		t.Errorf("expected 15 days, got %f", got)
	}
}

func TestFormatReport(t *testing.T) {
	a := &scriptedAnalyzer{byLen: map[int]models.AnalysisResult{21: result(models.Buy, 0.65)}}
	res := run(t, a, NewScoreStrategy(DefaultRules()), linearBars(50, 100, 1))
	out := FormatReport(res)
	for _, want := range []string{"TEST vs ^IDX", "System return", "take profit", "═"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q", want)
		}
	}
	if FormatReport(nil) != "" {
		t.Error("expected empty report for nil result")
	}
}
