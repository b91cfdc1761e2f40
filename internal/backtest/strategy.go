package backtest

import (
	"github.com/seenimoa/stockscore/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Strategy Interface
// ════════════════════════════════════════════════════════════════════

// Strategy turns an analysis result into entry and exit decisions.
type Strategy interface {
	// Name returns the human-readable strategy name.
	Name() string

	// Enter reports whether a flat book should open a long position.
	Enter(res models.AnalysisResult) bool

	// Exit reports whether an open long position should close, and why.
	// returnPct is the unrealised return of the position in percent.
	Exit(res models.AnalysisResult, returnPct float64) (string, bool)
}

// Exit reasons, checked in this order.
const (
	ExitSellSignal = "sell recommendation"
	ExitLowScore   = "low score"
	ExitStopLoss   = "stop loss"
	ExitTakeProfit = "take profit"
	ExitEndOfData  = "end of data"
)

// ════════════════════════════════════════════════════════════════════
// Position: the walk-forward book
// ════════════════════════════════════════════════════════════════════

// position is an open long held by the engine.
type position struct {
	entryIdx    int
	entryPrice  float64
	entryScore  float64
	entrySignal models.Recommendation
}

// returnPct is the unrealised return at price, in percent.
func (p *position) returnPct(price float64) float64 {
	if p == nil || p.entryPrice == 0 {
		return 0
	}
	return (price/p.entryPrice - 1) * 100
}
