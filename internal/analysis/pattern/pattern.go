// Package pattern detects chart patterns, support and resistance levels and
// the technical sentiment flags that feed the scoring engine.
package pattern

import (
	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Report bundles everything the analyzer derives from one series.
type Report struct {
	Patterns  []models.TechnicalPattern
	Levels    models.SupportResistance
	Sentiment models.SentimentSnapshot
	Trend     models.TrendStrength
}

// NeutralReport is returned when analysis cannot run.
func NeutralReport() Report {
	return Report{
		Patterns: []models.TechnicalPattern{},
		Levels: models.SupportResistance{
			Support:    []models.PriceLevel{},
			Resistance: []models.PriceLevel{},
		},
	}
}

// Analyze runs pattern detection and sentiment extraction over series using
// the precomputed indicator frame. A fault yields the neutral report.
func Analyze(series models.Series, frame models.IndicatorFrame) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			err := &models.ComputationError{Component: "patterns", Cause: r}
			log.Error().Err(err).Int("bars", len(series)).Msg("pattern analysis failed")
			rep = NeutralReport()
		}
	}()

	rep = NeutralReport()
	if db, ok := DoubleBottom(series); ok {
		rep.Patterns = append(rep.Patterns, db)
	}
	if hs, ok := HeadAndShoulders(series, 0); ok {
		rep.Patterns = append(rep.Patterns, hs)
	}
	rep.Patterns = append(rep.Patterns, Breakouts(series)...)

	rep.Levels = SupportResistance(series, DefaultLevelWindow)
	rep.Sentiment = Sentiment(series, frame)
	rep.Trend = Trend(frame)
	return rep
}
