package pattern

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/seenimoa/stockscore/pkg/models"
)

const (
	breakoutWindow    = 20
	breakoutPriceMult = 1.02
	breakoutVolMult   = 1.5
	breakoutConf      = 0.7

	bottomMargin    = 20
	bottomNeighbors = 10
	bottomTolerance = 0.02
	bottomConf      = 0.8
)

// Breakouts returns every bar closing more than 2% above its 20-bar average
// on volume 1.5x its 20-bar average volume.
func Breakouts(series models.Series) []models.TechnicalPattern {
	n := len(series)
	if n <= breakoutWindow {
		return nil
	}

	closes := series.Closes()
	volumes := series.Volumes()
	ma := talib.Sma(closes, breakoutWindow)
	volMA := talib.Sma(volumes, breakoutWindow)

	var out []models.TechnicalPattern
	for i := breakoutWindow; i < n; i++ {
		if closes[i] > ma[i]*breakoutPriceMult && volumes[i] > volMA[i]*breakoutVolMult {
			out = append(out, models.TechnicalPattern{
				Type:        models.PatternBreakout,
				StartDate:   series[i-1].Day(),
				EndDate:     series[i].Day(),
				Confidence:  breakoutConf,
				Description: fmt.Sprintf("upside breakout on high volume at %.2f", closes[i]),
			})
		}
	}
	return out
}

// DoubleBottom finds the earliest pair of lows within 2% of each other. The
// first low must undercut its neighbours and the 10 bars on either side; the
// second, at least 10 bars later, must undercut its neighbours.
func DoubleBottom(series models.Series) (models.TechnicalPattern, bool) {
	n := len(series)
	if n < 2*bottomMargin {
		return models.TechnicalPattern{}, false
	}
	lows := series.Lows()

	for i := bottomMargin; i < n-bottomMargin; i++ {
		if !isLocalMin(lows, i) ||
			lows[i] >= minOf(lows[i-bottomNeighbors:i]) ||
			lows[i] >= minOf(lows[i+1:i+1+bottomNeighbors]) {
			continue
		}
		for j := i + bottomNeighbors; j < n-bottomNeighbors; j++ {
			if math.Abs(lows[i]-lows[j])/lows[i] < bottomTolerance && isLocalMin(lows, j) {
				return models.TechnicalPattern{
					Type:        models.PatternDoubleBottom,
					StartDate:   series[i].Day(),
					EndDate:     series[j].Day(),
					Confidence:  bottomConf,
					Description: fmt.Sprintf("double bottom near %.2f", lows[i]),
				}, true
			}
		}
	}
	return models.TechnicalPattern{}, false
}

// HeadAndShoulders detects a basic head-and-shoulders top in the trailing
// window: three peaks with the middle highest and shoulders within 5%.
func HeadAndShoulders(series models.Series, window int) (models.TechnicalPattern, bool) {
	if window <= 0 {
		window = 20
	}
	n := len(series)
	if n < window {
		return models.TechnicalPattern{}, false
	}

	start := n - window
	peaks := findPeaks(series[start:], 3)
	if len(peaks) < 3 {
		return models.TechnicalPattern{}, false
	}

	for i := 1; i < len(peaks)-1; i++ {
		left := series[start+peaks[i-1]]
		head := series[start+peaks[i]]
		right := series[start+peaks[i+1]]

		if head.High > left.High && head.High > right.High {
			shoulderDiff := math.Abs(left.High-right.High) / math.Max(left.High, right.High)
			if shoulderDiff < 0.05 {
				neckline := math.Min(left.Low, right.Low)
				return models.TechnicalPattern{
					Type:        models.PatternHeadAndShoulders,
					StartDate:   left.Day(),
					EndDate:     right.Day(),
					Confidence:  math.Min(0.6+(1-shoulderDiff)*0.2, 1.0),
					Description: fmt.Sprintf("head and shoulders top, neckline %.2f", neckline),
				}, true
			}
		}
	}
	return models.TechnicalPattern{}, false
}

// --- helpers ---

func isLocalMin(data []float64, i int) bool {
	return data[i] < data[i-1] && data[i] < data[i+1]
}

func minOf(data []float64) float64 {
	m := math.Inf(1)
	for _, v := range data {
		m = math.Min(m, v)
	}
	return m
}

func findPeaks(series models.Series, minDist int) []int {
	n := len(series)
	var peaks []int
	lastPeak := -minDist

	for i := 1; i < n-1; i++ {
		if series[i].High > series[i-1].High && series[i].High > series[i+1].High {
			if i-lastPeak >= minDist {
				peaks = append(peaks, i)
				lastPeak = i
			}
		}
	}
	return peaks
}
