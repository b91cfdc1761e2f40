package pattern

import (
	"github.com/markcheno/go-talib"

	"github.com/seenimoa/stockscore/pkg/models"
)

// DefaultLevelWindow is the trailing window for support and resistance.
const DefaultLevelWindow = 20

// SupportResistance marks bar i as support when its close equals the minimum
// close of the window bars before it, and as resistance when it equals the
// maximum. Points accumulate in date order.
func SupportResistance(series models.Series, window int) models.SupportResistance {
	if window <= 0 {
		window = DefaultLevelWindow
	}
	levels := models.SupportResistance{
		Support:    []models.PriceLevel{},
		Resistance: []models.PriceLevel{},
	}
	if len(series) <= window || window < 2 {
		return levels
	}

	closes := series.Closes()
	lows := talib.Min(closes, window)
	highs := talib.Max(closes, window)

	for i := window; i < len(closes); i++ {
		// lows[i-1] covers closes[i-window : i]
		if closes[i] == lows[i-1] {
			levels.Support = append(levels.Support, models.PriceLevel{Price: closes[i], Date: series[i].Day()})
		}
		if closes[i] == highs[i-1] {
			levels.Resistance = append(levels.Resistance, models.PriceLevel{Price: closes[i], Date: series[i].Day()})
		}
	}
	return levels
}
