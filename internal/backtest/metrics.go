package backtest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/stockscore/pkg/models"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Performance Metrics
// ════════════════════════════════════════════════════════════════════

// ComputeMetrics fills the trade statistics, drawdown and Sharpe ratio of r
// in place. riskFreeRate is annual (e.g. 0.04 for 4%).
func ComputeMetrics(r *models.BacktestResult, riskFreeRate float64) {
	if r == nil {
		return
	}

	computeTradeStats(r)
	computeDrawdown(r)
	computeSharpe(r, riskFreeRate)
}

// closedTrades returns the trades that were exited by the strategy.
func closedTrades(trades []models.BacktestTrade) []models.BacktestTrade {
	out := make([]models.BacktestTrade, 0, len(trades))
	for _, t := range trades {
		if !t.Open {
			out = append(out, t)
		}
	}
	return out
}

// ────────────────────────────────────────────────────────────────────
// Trade statistics
// ────────────────────────────────────────────────────────────────────

// computeTradeStats counts closed trades only. The system return is the
// plain sum of their percentage returns. ProfitFactor stays 0 when there
// are no losing trades.
func computeTradeStats(r *models.BacktestResult) {
	closed := closedTrades(r.Trades)
	r.TotalTrades = len(closed)
	r.WinningTrades, r.LosingTrades = 0, 0
	if r.TotalTrades == 0 {
		return
	}

	var (
		sumReturn         decimal.Decimal
		winPct, lossPct   decimal.Decimal
		totalWin, totLoss decimal.Decimal
	)
	for _, t := range closed {
		ret := decimal.NewFromFloat(t.ReturnPct)
		pnl := decimal.NewFromFloat(t.PnL)
		sumReturn = sumReturn.Add(ret)
		switch {
		case t.PnL > 0:
			r.WinningTrades++
			winPct = winPct.Add(ret)
			totalWin = totalWin.Add(pnl)
		case t.PnL < 0:
			r.LosingTrades++
			lossPct = lossPct.Add(ret.Abs())
			totLoss = totLoss.Add(pnl.Abs())
		}
	}

	r.SystemReturnPct = sumReturn.InexactFloat64()
	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100

	if r.WinningTrades > 0 {
		r.AvgWinPct = winPct.Div(decimal.NewFromInt(int64(r.WinningTrades))).InexactFloat64()
	}
	if r.LosingTrades > 0 {
		r.AvgLossPct = lossPct.Div(decimal.NewFromInt(int64(r.LosingTrades))).InexactFloat64()
	}
	if totLoss.IsPositive() {
		r.ProfitFactor = totalWin.Div(totLoss).InexactFloat64()
	}
}

// ────────────────────────────────────────────────────────────────────
// Maximum Drawdown
// ────────────────────────────────────────────────────────────────────

func computeDrawdown(r *models.BacktestResult) {
	if len(r.EquityCurve) == 0 {
		return
	}

	peak := r.EquityCurve[0].Value
	maxDDPct := 0.0
	for _, ep := range r.EquityCurve {
		if ep.Value > peak {
			peak = ep.Value
		}
		if peak > 0 {
			if dd := (peak - ep.Value) / peak * 100; dd > maxDDPct {
				maxDDPct = dd
			}
		}
	}
	r.MaxDrawdownPct = maxDDPct
}

// ────────────────────────────────────────────────────────────────────
// Sharpe Ratio (annualized)
// ────────────────────────────────────────────────────────────────────

func computeSharpe(r *models.BacktestResult, riskFreeRate float64) {
	returns := dailyReturns(r.EquityCurve)
	if len(returns) < 2 {
		return
	}

	dailyRf := riskFreeRate / 252
	excess := make([]float64, len(returns))
	for i, ret := range returns {
		excess[i] = ret - dailyRf
	}

	if sd := stddev(excess); sd > 0 {
		r.SharpeRatio = mean(excess) / sd * math.Sqrt(252)
	}
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

// dailyReturns computes simple returns from the equity curve.
func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Value > 0 {
			returns[i-1] = (curve[i].Value - curve[i-1].Value) / curve[i-1].Value
		}
	}
	return returns
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	m := mean(data)
	sumSq := 0.0
	for _, v := range data {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)-1)) // sample stddev
}

// ════════════════════════════════════════════════════════════════════
// Analysis Utilities
// ════════════════════════════════════════════════════════════════════

// MaxConsecutiveWins returns the longest winning streak.
func MaxConsecutiveWins(trades []models.BacktestTrade) int {
	return longestStreak(trades, func(t models.BacktestTrade) bool { return t.PnL > 0 })
}

// MaxConsecutiveLosses returns the longest losing streak.
func MaxConsecutiveLosses(trades []models.BacktestTrade) int {
	return longestStreak(trades, func(t models.BacktestTrade) bool { return t.PnL < 0 })
}

func longestStreak(trades []models.BacktestTrade, hit func(models.BacktestTrade) bool) int {
	best, current := 0, 0
	for _, t := range trades {
		if !hit(t) {
			current = 0
			continue
		}
		current++
		if current > best {
			best = current
		}
	}
	return best
}

// MedianReturnPct returns the median percentage return across trades.
func MedianReturnPct(trades []models.BacktestTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	rets := make([]float64, len(trades))
	for i, t := range trades {
		rets[i] = t.ReturnPct
	}
	sort.Float64s(rets)
	n := len(rets)
	if n%2 == 0 {
		return (rets[n/2-1] + rets[n/2]) / 2
	}
	return rets[n/2]
}

// AverageHoldingPeriod returns the mean holding period in days.
func AverageHoldingPeriod(trades []models.BacktestTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	totalDays := 0.0
	for _, t := range trades {
		totalDays += t.ExitDate.Sub(t.EntryDate).Hours() / 24
	}
	return totalDays / float64(len(trades))
}

// ════════════════════════════════════════════════════════════════════
// Text Report
// ════════════════════════════════════════════════════════════════════

// FormatReport renders a plain-text summary of r for terminals.
func FormatReport(r *models.BacktestResult) string {
	if r == nil {
		return ""
	}
	heavy := strings.Repeat("═", 60)
	light := strings.Repeat("─", 60)
	closed := closedTrades(r.Trades)

	var b strings.Builder
	fmt.Fprintln(&b, heavy)
	fmt.Fprintf(&b, "  Walk-forward backtest: %s vs %s\n", r.Symbol, r.Benchmark)
	fmt.Fprintf(&b, "  %s → %s (%d evaluations)\n", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"), r.Evaluations)
	fmt.Fprintln(&b, heavy)
	fmt.Fprintf(&b, "  %-24s %14s\n", "Initial capital", utils.FormatMoney(r.InitialCapital))
	fmt.Fprintf(&b, "  %-24s %14s\n", "Final capital", utils.FormatMoney(r.FinalCapital))
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "System return", r.SystemReturnPct)
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "Buy & hold return", r.BuyHoldPct)
	fmt.Fprintf(&b, "  %-24s %14.2f\n", "Sharpe ratio", r.SharpeRatio)
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "Max drawdown", r.MaxDrawdownPct)
	fmt.Fprintln(&b, light)
	fmt.Fprintf(&b, "  %-24s %14d\n", "Closed trades", r.TotalTrades)
	fmt.Fprintf(&b, "  %-24s %14s\n", "Winning / losing", fmt.Sprintf("%d / %d", r.WinningTrades, r.LosingTrades))
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "Win rate", r.WinRate)
	fmt.Fprintf(&b, "  %-24s %14.2f\n", "Profit factor", r.ProfitFactor)
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "Average win", r.AvgWinPct)
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "Average loss", r.AvgLossPct)
	fmt.Fprintf(&b, "  %-24s %13.2f%%\n", "Median return", MedianReturnPct(closed))
	fmt.Fprintf(&b, "  %-24s %14d\n", "Longest win streak", MaxConsecutiveWins(closed))
	fmt.Fprintf(&b, "  %-24s %14d\n", "Longest loss streak", MaxConsecutiveLosses(closed))
	fmt.Fprintf(&b, "  %-24s %12.1f d\n", "Average holding", AverageHoldingPeriod(r.Trades))
	if len(r.Trades) > 0 {
		fmt.Fprintln(&b, light)
		for _, t := range r.Trades {
			status := t.ExitReason
			if t.Open {
				status += " (open)"
			}
			fmt.Fprintf(&b, "  %s → %s  %10.2f → %10.2f  %+7.2f%%  %s\n",
				t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
				t.EntryPrice, t.ExitPrice, t.ReturnPct, status)
		}
	}
	fmt.Fprintln(&b, heavy)
	return b.String()
}
