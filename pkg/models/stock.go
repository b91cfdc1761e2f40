// Package models defines the core data structures used throughout stockscore.
package models

import (
	"sort"
	"time"
)

// OHLCV represents a single daily bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Day returns the bar's calendar day with the time-of-day stripped.
func (b OHLCV) Day() time.Time {
	return TruncateDay(b.Timestamp)
}

// TruncateDay drops the time-of-day and location of t.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Series is an ordered sequence of bars, strictly increasing by day.
type Series []OHLCV

// Validate checks the ordering invariant: strictly increasing days, no duplicates.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Day().After(s[i-1].Day()) {
			return ErrUnsortedSeries
		}
	}
	return nil
}

// Closes returns the close prices.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high prices.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows returns the low prices.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volumes as floats.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = float64(b.Volume)
	}
	return out
}

// Last returns the most recent bar and false when the series is empty.
func (s Series) Last() (OHLCV, bool) {
	if len(s) == 0 {
		return OHLCV{}, false
	}
	return s[len(s)-1], true
}

// Until returns the prefix of s whose bars fall on or before day.
func (s Series) Until(day time.Time) Series {
	day = TruncateDay(day)
	idx := sort.Search(len(s), func(i int) bool {
		return s[i].Day().After(day)
	})
	return s[:idx]
}

// Clone returns a copy that shares no backing array with s.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// NormalizeSeries sorts bars by time, truncates timestamps to the day and
// drops duplicate days keeping the last bar seen for each day. Bars with a
// non-positive close are removed.
func NormalizeSeries(bars []OHLCV) Series {
	sorted := make(Series, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		b.Timestamp = b.Day()
		sorted = append(sorted, b)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(b.Timestamp) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
