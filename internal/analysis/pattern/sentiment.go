package pattern

import (
	"github.com/seenimoa/stockscore/pkg/models"
)

// Sentiment thresholds and windows.
const (
	OversoldRSI   = 30.0
	OverboughtRSI = 70.0

	crossLookback = 19 // middle band vs the value 20 bars back, inclusive
	volShort      = 10
	volLong       = 30
)

// Sentiment derives the technical sentiment flags from the latest indicator
// values. Undefined inputs leave their flag false.
func Sentiment(series models.Series, frame models.IndicatorFrame) models.SentimentSnapshot {
	var s models.SentimentSnapshot

	if rsi, ok := frame.Latest(models.IndRSI).Get(); ok {
		s.Oversold = rsi < OversoldRSI
		s.Overbought = rsi > OverboughtRSI
	}

	middle := frame.Line(models.IndBBMiddle)
	now, okNow := middle.Last().Get()
	then, okThen := middle.FromEnd(crossLookback).Get()
	if okNow && okThen {
		s.GoldenCross = now > then
		s.DeathCross = now < then
	}

	s.VolumeTrend = VolumeTrend(series)
	return s
}

// VolumeTrend returns mean(last 10 volumes) / mean(last 30 volumes) - 1.
// Shorter series use what they have; zero volume gives 0.
func VolumeTrend(series models.Series) float64 {
	if len(series) == 0 {
		return 0
	}
	short := tailMean(series, volShort)
	long := tailMean(series, volLong)
	if long == 0 {
		return 0
	}
	return short/long - 1
}

func tailMean(series models.Series, k int) float64 {
	if k > len(series) {
		k = len(series)
	}
	sum := 0.0
	for _, b := range series[len(series)-k:] {
		sum += float64(b.Volume)
	}
	return sum / float64(k)
}

// Trend reports the latest ADX, Aroon up minus down and MACD histogram.
// Undefined values are reported as 0.
func Trend(frame models.IndicatorFrame) models.TrendStrength {
	var t models.TrendStrength
	t.ADXStrength = frame.Latest(models.IndADX).Or(0)

	up, okUp := frame.Latest(models.IndAroonUp).Get()
	down, okDown := frame.Latest(models.IndAroonDown).Get()
	if okUp && okDown {
		t.AroonTrend = up - down
	}

	t.MACDTrend = frame.Latest(models.IndMACDHist).Or(0)
	return t
}
