package technical

import (
	"github.com/markcheno/go-talib"

	"github.com/seenimoa/stockscore/pkg/models"
)

// SMA calculates Simple Moving Average for the given period. Bars before
// period-1 are undefined.
func SMA(data []float64, period int) models.Line {
	n := len(data)
	result := models.NewLine(n)
	if n < period || period <= 0 {
		return result
	}

	sma := talib.Sma(data, period)
	copy(result[period-1:], sma[period-1:])
	return result
}

// SMALatest returns the most recent SMA value.
func SMALatest(data []float64, period int) models.Value {
	return SMA(data, period).Last()
}

// EMA calculates Exponential Moving Average for the given period. The
// average is recursive from the first value and defined from period-1 on.
func EMA(data []float64, period int) models.Line {
	n := len(data)
	result := models.NewLine(n)
	if period <= 0 {
		return result
	}
	ema := emaCalc(data, period)
	for i := period - 1; i < n; i++ {
		result[i] = ema[i]
	}
	return result
}

// EMALatest returns the most recent EMA value.
func EMALatest(data []float64, period int) models.Value {
	return EMA(data, period).Last()
}
