package technical

import (
	"math"

	"github.com/seenimoa/stockscore/pkg/models"
)

// ADX calculates the Average Directional Index. Directional movement is
// averaged against a period-1 true range over the same window; the first
// bar carries no directional movement. Zero denominators are undefined.
func ADX(series models.Series, period int) models.Line {
	if period <= 0 {
		period = DefaultADXPeriod
	}
	n := len(series)
	if n == 0 {
		return models.Line{}
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := series[i].High - series[i-1].High
		down := series[i-1].Low - series[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	trMean := rollingMean(TrueRange(series), period)
	plusMean := rollingMean(plusDM, period)
	minusMean := rollingMean(minusDM, period)

	dx := models.NewLine(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(trMean[i]) || trMean[i] == 0 {
			continue
		}
		plusDI := 100 * plusMean[i] / trMean[i]
		minusDI := 100 * minusMean[i] / trMean[i]
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	return rollingMean(dx, period)
}

// ADXLatest returns the most recent ADX value.
func ADXLatest(series models.Series, period int) models.Value {
	return ADX(series, period).Last()
}

// AroonResult holds the Aroon up and down lines.
type AroonResult struct {
	Up   models.Line
	Down models.Line
}

// Aroon calculates the Aroon indicator over a window of period+1 bars.
// Up is 100*(period - bars since highest high)/period; down uses the lowest
// low. Ties resolve to the earliest bar in the window.
func Aroon(series models.Series, period int) AroonResult {
	if period <= 0 {
		period = DefaultAroonPeriod
	}
	n := len(series)
	res := AroonResult{Up: models.NewLine(n), Down: models.NewLine(n)}

	for i := period; i < n; i++ {
		start := i - period
		hiIdx, loIdx := start, start
		for j := start + 1; j <= i; j++ {
			if series[j].High > series[hiIdx].High {
				hiIdx = j
			}
			if series[j].Low < series[loIdx].Low {
				loIdx = j
			}
		}
		sinceHigh := float64(i - hiIdx)
		sinceLow := float64(i - loIdx)
		res.Up[i] = 100 * (float64(period) - sinceHigh) / float64(period)
		res.Down[i] = 100 * (float64(period) - sinceLow) / float64(period)
	}
	return res
}
