// Package technical implements the indicator library. Every indicator maps a
// models.Series to one or more models.Line values of equal length, NaN-padded
// before the lookback is satisfied.
package technical

import (
	"math"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Default lookback periods.
const (
	DefaultRSIPeriod   = 14
	DefaultMACDFast    = 12
	DefaultMACDSlow    = 26
	DefaultMACDSignal  = 9
	DefaultBBPeriod    = 20
	DefaultBBMult      = 2.0
	DefaultATRPeriod   = 14
	DefaultADXPeriod   = 14
	DefaultAroonPeriod = 25
	DefaultCMFPeriod   = 20
	DefaultROCPeriod   = 12
)

// RSI calculates the Relative Strength Index. Gains and losses of close
// deltas are smoothed with alpha = 1/period starting at the first delta.
// Indices below period are undefined, as are points where both averages are 0.
func RSI(series models.Series, period int) models.Line {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	n := len(series)
	rsi := models.NewLine(n)
	if n < 2 {
		return rsi
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < n; i++ {
		change := series[i].Close - series[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		if i < period {
			continue
		}
		switch {
		case avgGain == 0 && avgLoss == 0:
			// undefined
		case avgLoss == 0:
			rsi[i] = 100
		default:
			rs := avgGain / avgLoss
			rsi[i] = 100 - (100 / (1 + rs))
		}
	}
	return rsi
}

// RSILatest returns only the most recent RSI value.
func RSILatest(series models.Series, period int) models.Value {
	return RSI(series, period).Last()
}

// MACDResult holds the three MACD lines.
type MACDResult struct {
	MACD      models.Line
	Signal    models.Line
	Histogram models.Line
}

// MACD calculates the Moving Average Convergence Divergence.
// Default parameters: fast=12, slow=26, signal=9. EMAs are recursive from
// the first close. MACD, the signal line and the histogram are reported
// from bar max(fast, slow)-1. Histogram is exactly MACD - Signal.
func MACD(series models.Series, fast, slow, signal int) MACDResult {
	if fast <= 0 {
		fast = DefaultMACDFast
	}
	if slow <= 0 {
		slow = DefaultMACDSlow
	}
	if signal <= 0 {
		signal = DefaultMACDSignal
	}

	n := len(series)
	res := MACDResult{
		MACD:      models.NewLine(n),
		Signal:    models.NewLine(n),
		Histogram: models.NewLine(n),
	}
	if n == 0 {
		return res
	}

	closes := series.Closes()
	fastEMA := emaCalc(closes, fast)
	slowEMA := emaCalc(closes, slow)

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = fastEMA[i] - slowEMA[i]
	}
	sig := emaCalc(raw, signal)

	lookback := max(fast, slow) - 1
	for i := lookback; i < n; i++ {
		res.MACD[i] = raw[i]
		res.Signal[i] = sig[i]
		res.Histogram[i] = raw[i] - sig[i]
	}
	return res
}

// BollingerResult holds the three Bollinger band lines.
type BollingerResult struct {
	Upper  models.Line
	Middle models.Line
	Lower  models.Line
}

// BollingerBands calculates Bollinger Bands using the sample standard
// deviation of the window. Default: period=20, stddev multiplier=2.
func BollingerBands(series models.Series, period int, mult float64) BollingerResult {
	if period <= 0 {
		period = DefaultBBPeriod
	}
	if mult <= 0 {
		mult = DefaultBBMult
	}

	closes := series.Closes()
	n := len(closes)
	res := BollingerResult{
		Upper:  models.NewLine(n),
		Middle: models.NewLine(n),
		Lower:  models.NewLine(n),
	}
	if period < 2 {
		return res
	}

	middle := SMA(closes, period)
	for i := period - 1; i < n; i++ {
		mean := middle[i]
		sd := sampleStddev(closes[i-period+1:i+1], mean)
		res.Upper[i] = mean + mult*sd
		res.Middle[i] = mean
		res.Lower[i] = mean - mult*sd
	}
	return res
}

// TrueRange returns max(h-l, |h-prevC|, |l-prevC|). The first bar uses h-l.
func TrueRange(series models.Series) []float64 {
	n := len(series)
	tr := make([]float64, n)
	if n == 0 {
		return tr
	}
	tr[0] = series[0].High - series[0].Low
	for i := 1; i < n; i++ {
		hl := series[i].High - series[i].Low
		hc := math.Abs(series[i].High - series[i-1].Close)
		lc := math.Abs(series[i].Low - series[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR calculates the Average True Range as a rolling mean of true range.
func ATR(series models.Series, period int) models.Line {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	return rollingMean(TrueRange(series), period)
}

// ATRLatest returns the most recent ATR value.
func ATRLatest(series models.Series, period int) models.Value {
	return ATR(series, period).Last()
}

// --- helper functions ---

func sampleStddev(data []float64, mean float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)-1))
}

// emaCalc is a recursive EMA seeded with the first value (alpha = 2/(period+1)).
func emaCalc(data []float64, period int) []float64 {
	n := len(data)
	ema := make([]float64, n)
	if n == 0 || period <= 0 {
		return ema
	}

	k := 2.0 / float64(period+1)
	ema[0] = data[0]
	for i := 1; i < n; i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}
	return ema
}

// rollingSum returns the trailing sum over period. A window containing NaN
// yields NaN.
func rollingSum(data []float64, period int) models.Line {
	n := len(data)
	out := models.NewLine(n)
	if period <= 0 {
		return out
	}
	for i := period - 1; i < n; i++ {
		sum := 0.0
		for _, v := range data[i-period+1 : i+1] {
			sum += v
		}
		out[i] = sum
	}
	return out
}

func rollingMean(data []float64, period int) models.Line {
	out := rollingSum(data, period)
	for i, v := range out {
		out[i] = v / float64(period)
	}
	return out
}
