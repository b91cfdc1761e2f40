// Package alerts manages user-defined price, volume, RSI and MACD triggers:
// validation, evaluation against the latest analysis, a YAML-backed book
// of active and triggered alerts, and a cron-driven watcher.
package alerts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/stockscore/pkg/models"
)

// ErrAlertNotFound is returned when an alert ID is not in the book.
var ErrAlertNotFound = errors.New("alert not found")

// ErrInvalidAlert is returned for an alert that fails validation.
var ErrInvalidAlert = errors.New("invalid alert")

// allowed lists the conditions each alert type accepts.
var allowed = map[models.AlertType][]models.AlertCondition{
	models.AlertPrice:  {models.ConditionAbove, models.ConditionBelow},
	models.AlertRSI:    {models.ConditionAbove, models.ConditionBelow},
	models.AlertVolume: {models.ConditionAbove},
	models.AlertMACD:   {models.ConditionCrossover, models.ConditionCrossunder},
}

// New builds a validated alert with a fresh ID.
func New(symbol string, typ models.AlertType, cond models.AlertCondition, target float64, now time.Time) (models.Alert, error) {
	a := models.Alert{
		ID:        uuid.NewString(),
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Type:      models.AlertType(strings.ToLower(string(typ))),
		Condition: models.AlertCondition(strings.ToLower(string(cond))),
		Target:    target,
		CreatedAt: now,
	}
	if err := Validate(a); err != nil {
		return models.Alert{}, err
	}
	return a, nil
}

// Validate checks the symbol and the type/condition pairing.
func Validate(a models.Alert) error {
	if a.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidAlert)
	}
	conds, ok := allowed[a.Type]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAlert, a.Type)
	}
	for _, c := range conds {
		if c == a.Condition {
			if a.Type == models.AlertRSI && (a.Target < 0 || a.Target > 100) {
				return fmt.Errorf("%w: rsi target %.2f outside [0, 100]", ErrInvalidAlert, a.Target)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s alerts do not support %q", ErrInvalidAlert, a.Type, a.Condition)
}

// Observation is the latest state of one symbol.
type Observation struct {
	Price    float64
	Volume   int64
	RSI      models.Value
	MACDHist models.Value
}

// Observe builds an Observation from a series and its analysis.
func Observe(series models.Series, res models.AnalysisResult) Observation {
	obs := Observation{
		Price:    res.LastClose,
		RSI:      res.Indicators.RSI,
		MACDHist: res.Indicators.MACDHist,
	}
	if last, ok := series.Last(); ok {
		obs.Volume = last.Volume
	}
	return obs
}

// Evaluate reports whether a fires for obs, and the observed quantity.
// Comparisons are strict; undefined indicators never fire.
func Evaluate(a models.Alert, obs Observation) (bool, float64) {
	switch a.Type {
	case models.AlertPrice:
		return compare(a.Condition, obs.Price, a.Target), obs.Price
	case models.AlertVolume:
		v := float64(obs.Volume)
		return v > a.Target, v
	case models.AlertRSI:
		rsi, ok := obs.RSI.Get()
		if !ok {
			return false, 0
		}
		return compare(a.Condition, rsi, a.Target), rsi
	case models.AlertMACD:
		h, ok := obs.MACDHist.Get()
		if !ok {
			return false, 0
		}
		switch a.Condition {
		case models.ConditionCrossover:
			return h > 0, h
		case models.ConditionCrossunder:
			return h < 0, h
		}
	}
	return false, 0
}

func compare(c models.AlertCondition, v, target float64) bool {
	switch c {
	case models.ConditionAbove:
		return v > target
	case models.ConditionBelow:
		return v < target
	}
	return false
}
