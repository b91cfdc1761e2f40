package backtest

import (
	"github.com/seenimoa/stockscore/pkg/models"
)

// BuiltinStrategies returns all strategies shipped with the engine.
func BuiltinStrategies() []Strategy {
	return []Strategy{
		NewScoreStrategy(DefaultRules()),
		NewSignalStrategy(DefaultRules()),
	}
}

// StrategyByName looks up a builtin strategy. The empty name selects the
// score strategy.
func StrategyByName(name string) (Strategy, bool) {
	if name == "" {
		return NewScoreStrategy(DefaultRules()), true
	}
	for _, s := range BuiltinStrategies() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Rules holds the score and return thresholds shared by the builtin
// strategies. Returns are in percent.
type Rules struct {
	EntryScore float64 // enter above this score
	ExitScore  float64 // exit below this score
	StopLoss   float64 // exit at or below this return, e.g. -5
	TakeProfit float64 // exit at or above this return, e.g. 15
}

// DefaultRules returns the standard walk-forward thresholds.
func DefaultRules() Rules {
	return Rules{
		EntryScore: 0.6,
		ExitScore:  0.4,
		StopLoss:   -5,
		TakeProfit: 15,
	}
}

// ════════════════════════════════════════════════════════════════════
// Score Strategy
// ════════════════════════════════════════════════════════════════════

// ScoreStrategy enters on a bullish recommendation or a score above
// EntryScore and exits on Sell, a score below ExitScore, the stop loss or
// the take profit, whichever matches first.
type ScoreStrategy struct {
	rules Rules
}

// NewScoreStrategy creates a ScoreStrategy.
func NewScoreStrategy(r Rules) *ScoreStrategy { return &ScoreStrategy{rules: r} }

func (s *ScoreStrategy) Name() string { return "score" }

func (s *ScoreStrategy) Enter(res models.AnalysisResult) bool {
	if res.Recommendation.IsBullish() {
		return true
	}
	score, ok := res.Score.Get()
	return ok && score > s.rules.EntryScore
}

func (s *ScoreStrategy) Exit(res models.AnalysisResult, returnPct float64) (string, bool) {
	if res.Recommendation == models.Sell {
		return ExitSellSignal, true
	}
	if score, ok := res.Score.Get(); ok && score < s.rules.ExitScore {
		return ExitLowScore, true
	}
	return exitOnReturn(s.rules, returnPct)
}

// ════════════════════════════════════════════════════════════════════
// Signal Strategy
// ════════════════════════════════════════════════════════════════════

// SignalStrategy trades on the categorical recommendation only: it enters
// on StrongBuy or Buy and exits on Sell or WeakSell, with the same return
// limits as ScoreStrategy.
type SignalStrategy struct {
	rules Rules
}

// NewSignalStrategy creates a SignalStrategy.
func NewSignalStrategy(r Rules) *SignalStrategy { return &SignalStrategy{rules: r} }

func (s *SignalStrategy) Name() string { return "signal" }

func (s *SignalStrategy) Enter(res models.AnalysisResult) bool {
	return res.Recommendation.IsBullish()
}

func (s *SignalStrategy) Exit(res models.AnalysisResult, returnPct float64) (string, bool) {
	if res.Recommendation == models.Sell || res.Recommendation == models.WeakSell {
		return ExitSellSignal, true
	}
	return exitOnReturn(s.rules, returnPct)
}

func exitOnReturn(r Rules, returnPct float64) (string, bool) {
	switch {
	case returnPct <= r.StopLoss:
		return ExitStopLoss, true
	case returnPct >= r.TakeProfit:
		return ExitTakeProfit, true
	}
	return "", false
}
