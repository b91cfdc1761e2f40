package models

import "time"

// BacktestResult is the outcome of a walk-forward run of the scoring engine.
type BacktestResult struct {
	Symbol          string          `json:"symbol"`
	Benchmark       string          `json:"benchmark"`
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	InitialCapital  float64         `json:"initial_capital"`
	FinalCapital    float64         `json:"final_capital"`
	SystemReturnPct float64         `json:"system_return_pct"` // sum of closed trade returns
	BuyHoldPct      float64         `json:"buy_hold_pct"`
	SharpeRatio     float64         `json:"sharpe_ratio"`
	MaxDrawdownPct  float64         `json:"max_drawdown_pct"`
	WinRate         float64         `json:"win_rate"`
	ProfitFactor    float64         `json:"profit_factor"`
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	AvgWinPct       float64         `json:"avg_win_pct"`
	AvgLossPct      float64         `json:"avg_loss_pct"`
	Evaluations     int             `json:"evaluations"`
	Trades          []BacktestTrade `json:"trades"`
	EquityCurve     []EquityPoint   `json:"equity_curve"`
}

// EquityPoint represents a point on the equity curve.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// BacktestTrade is one round trip of the walk-forward simulation.
type BacktestTrade struct {
	EntryDate      time.Time      `json:"entry_date"`
	ExitDate       time.Time      `json:"exit_date"`
	EntryPrice     float64        `json:"entry_price"`
	ExitPrice      float64        `json:"exit_price"`
	Quantity       float64        `json:"quantity"`
	PnL            float64        `json:"pnl"`
	ReturnPct      float64        `json:"return_pct"`
	EntryScore     float64        `json:"entry_score"`
	EntrySignal    Recommendation `json:"entry_signal"`
	ExitSignal     Recommendation `json:"exit_signal"`
	ExitReason     string         `json:"exit_reason"`
	Open           bool           `json:"open,omitempty"` // marked to market at the last bar
}
