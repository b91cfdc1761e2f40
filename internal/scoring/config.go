// Package scoring fuses technical, risk, fundamental and sentiment inputs
// into a final score and a categorical recommendation.
package scoring

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/seenimoa/stockscore/internal/analysis/risk"
	"github.com/seenimoa/stockscore/internal/analysis/technical"
)

// Weights are the category weights of the final score. They must sum to 1.
type Weights struct {
	Technical   float64 `mapstructure:"technical"   yaml:"technical"   validate:"gte=0,lte=1"`
	Risk        float64 `mapstructure:"risk"        yaml:"risk"        validate:"gte=0,lte=1"`
	Fundamental float64 `mapstructure:"fundamental" yaml:"fundamental" validate:"gte=0,lte=1"`
	Sentiment   float64 `mapstructure:"sentiment"   yaml:"sentiment"   validate:"gte=0,lte=1"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Technical + w.Risk + w.Fundamental + w.Sentiment
}

// Thresholds are the recommendation boundaries. Sell < Hold < Buy < StrongBuy.
type Thresholds struct {
	StrongBuy float64 `mapstructure:"strong_buy" yaml:"strong_buy" validate:"gte=0,lte=1"`
	Buy       float64 `mapstructure:"buy"        yaml:"buy"        validate:"gte=0,lte=1"`
	Hold      float64 `mapstructure:"hold"       yaml:"hold"       validate:"gte=0,lte=1"`
	Sell      float64 `mapstructure:"sell"       yaml:"sell"       validate:"gte=0,lte=1"`
}

// Config is the typed configuration of the analysis core.
type Config struct {
	Periods      technical.Periods `mapstructure:"periods"        yaml:"periods"`
	RiskFreeRate float64           `mapstructure:"risk_free_rate" yaml:"risk_free_rate" validate:"gte=0,lt=1"`
	Weights      Weights           `mapstructure:"weights"        yaml:"weights"`
	Thresholds   Thresholds        `mapstructure:"thresholds"     yaml:"thresholds"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Periods:      technical.DefaultPeriods(),
		RiskFreeRate: risk.DefaultRiskFreeRate,
		Weights: Weights{
			Technical:   0.30,
			Risk:        0.25,
			Fundamental: 0.25,
			Sentiment:   0.20,
		},
		Thresholds: Thresholds{
			StrongBuy: 0.7,
			Buy:       0.6,
			Hold:      0.4,
			Sell:      0.3,
		},
	}
}

const weightTolerance = 1e-9

var validate = validator.New()

// Validate checks field ranges and the cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("scoring config: %w", err)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("scoring config: weights sum to %.6f, want 1", sum)
	}
	t := c.Thresholds
	if !(t.Sell < t.Hold && t.Hold < t.Buy && t.Buy < t.StrongBuy) {
		return fmt.Errorf("scoring config: thresholds must satisfy sell < hold < buy < strong_buy, got %.2f/%.2f/%.2f/%.2f",
			t.Sell, t.Hold, t.Buy, t.StrongBuy)
	}
	if c.Periods.MACDFast >= c.Periods.MACDSlow {
		return fmt.Errorf("scoring config: macd_fast (%d) must be below macd_slow (%d)",
			c.Periods.MACDFast, c.Periods.MACDSlow)
	}
	return nil
}
