package pipeline

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/seenimoa/stockscore/pkg/models"
)

// NextDayWindow is the number of closes the next-day band is measured over.
const NextDayWindow = 20

// PredictNextDay returns the last close bracketed by one sample standard
// deviation of the trailing NextDayWindow closes. It returns nil for
// shorter series.
func PredictNextDay(series models.Series) *models.PriceBand {
	n := len(series)
	if n < NextDayWindow {
		return nil
	}
	closes := series.Closes()[n-NextDayWindow:]
	// talib reports the population deviation.
	pop := talib.StdDev(closes, NextDayWindow, 1)[NextDayWindow-1]
	sd := pop * math.Sqrt(float64(NextDayWindow)/float64(NextDayWindow-1))
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return nil
	}

	last := closes[NextDayWindow-1]
	return &models.PriceBand{
		Lower:      last - sd,
		Prediction: last,
		Upper:      last + sd,
	}
}
