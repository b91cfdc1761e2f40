// Package risk computes point-in-time risk statistics of an instrument
// against a benchmark from aligned daily closes.
package risk

import (
	"math"
	"time"

	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/pkg/models"
)

// TradingDays is the annualisation factor for daily returns.
const TradingDays = 252

// DefaultRiskFreeRate is the annual risk-free rate used when none is given.
const DefaultRiskFreeRate = 0.04

// AlignedPair holds instrument and benchmark closes restricted to their
// common dates. All three slices have the same length.
type AlignedPair struct {
	Dates      []time.Time
	Instrument []float64
	Benchmark  []float64
}

// Len returns the number of aligned bars.
func (p AlignedPair) Len() int { return len(p.Dates) }

// Align restricts instrument and benchmark to the dates they share.
func Align(instrument, benchmark models.Series) (AlignedPair, error) {
	byDay := make(map[time.Time]float64, len(benchmark))
	for _, b := range benchmark {
		byDay[b.Day()] = b.Close
	}

	var pair AlignedPair
	for _, b := range instrument {
		day := b.Day()
		bc, ok := byDay[day]
		if !ok {
			continue
		}
		pair.Dates = append(pair.Dates, day)
		pair.Instrument = append(pair.Instrument, b.Close)
		pair.Benchmark = append(pair.Benchmark, bc)
	}

	if pair.Len() < 2 {
		return AlignedPair{}, &models.InsufficientDataError{Op: "align", Need: 2, Have: pair.Len()}
	}
	return pair, nil
}

// Returns computes paired daily percentage returns, dropping the first bar and
// any pair where either side is not finite.
func (p AlignedPair) Returns() (instrument, benchmark []float64) {
	for i := 1; i < p.Len(); i++ {
		ri := pctChange(p.Instrument[i-1], p.Instrument[i])
		rb := pctChange(p.Benchmark[i-1], p.Benchmark[i])
		if math.IsNaN(ri) || math.IsNaN(rb) {
			continue
		}
		instrument = append(instrument, ri)
		benchmark = append(benchmark, rb)
	}
	return instrument, benchmark
}

// DailyReturns returns the percentage change of close for a single series.
func DailyReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if r := pctChange(closes[i-1], closes[i]); !math.IsNaN(r) {
			out = append(out, r)
		}
	}
	return out
}

func pctChange(prev, cur float64) float64 {
	if prev == 0 {
		return math.NaN()
	}
	r := cur/prev - 1
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

// Calculator computes RiskMetrics with a fixed annual risk-free rate.
type Calculator struct {
	RiskFreeRate float64
}

// NewCalculator returns a Calculator for the given annual risk-free rate.
func NewCalculator(riskFreeRate float64) *Calculator {
	return &Calculator{RiskFreeRate: riskFreeRate}
}

// DailyRiskFree converts the annual rate to a compounded daily rate.
func (c *Calculator) DailyRiskFree() float64 {
	return math.Pow(1+c.RiskFreeRate, 1.0/TradingDays) - 1
}

// Compute aligns the two series and calculates the metrics. It never fails:
// insufficient data or an internal fault yields all-undefined metrics.
func (c *Calculator) Compute(instrument, benchmark models.Series) (m models.RiskMetrics) {
	defer func() {
		if r := recover(); r != nil {
			err := &models.ComputationError{Component: "risk", Cause: r}
			log.Error().Err(err).Msg("risk computation failed")
			m = models.RiskMetrics{}
		}
	}()

	pair, err := Align(instrument, benchmark)
	if err != nil {
		log.Warn().Err(err).Int("instrument_bars", len(instrument)).Int("benchmark_bars", len(benchmark)).Msg("risk metrics unavailable")
		return models.RiskMetrics{}
	}
	m, err = c.Calculate(pair)
	if err != nil {
		log.Warn().Err(err).Msg("risk metrics unavailable")
		return models.RiskMetrics{}
	}
	return m
}

// Calculate computes the metrics for an aligned pair. It returns
// ErrInsufficientData when fewer than two paired returns exist.
func (c *Calculator) Calculate(pair AlignedPair) (models.RiskMetrics, error) {
	ri, rb := pair.Returns()
	if len(ri) < 2 {
		return models.RiskMetrics{}, &models.InsufficientDataError{Op: "risk", Need: 2, Have: len(ri)}
	}

	rf := c.DailyRiskFree()
	annual := math.Sqrt(TradingDays)
	meanI, meanB := mean(ri), mean(rb)

	var m models.RiskMetrics

	if v := populationVariance(rb); v > epsilon {
		beta := sampleCovariance(ri, rb) / v
		m.Beta = models.Of(beta)
		m.Alpha = models.Of(meanI - (rf + beta*(meanB-rf)))
		if beta != 0 {
			m.Treynor = models.Of(annual * (meanI - rf) / beta)
		}
	}

	excess := make([]float64, len(ri))
	for i, r := range ri {
		excess[i] = r - rf
	}
	if sd := sampleStddev(excess); sd > epsilon {
		m.Sharpe = models.Of(annual * mean(excess) / sd)
	}

	m.VaR95 = models.Of(percentile(ri, 5))
	m.MaxDrawdown = models.Of(maxDrawdown(ri))
	m.Volatility = models.Of(sampleStddev(ri) * annual)

	return m, nil
}
