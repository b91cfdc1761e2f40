package risk

import (
	"math"
	"sort"
)

// epsilon is the magnitude below which a dispersion is treated as zero.
const epsilon = 1e-12

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// sampleStddev uses the n-1 denominator.
func sampleStddev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	m := mean(data)
	sumSq := 0.0
	for _, v := range data {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)-1))
}

// populationVariance uses the n denominator.
func populationVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := mean(data)
	sumSq := 0.0
	for _, v := range data {
		d := v - m
		sumSq += d * d
	}
	return sumSq / float64(len(data))
}

// sampleCovariance uses the n-1 denominator. a and b must have equal length.
func sampleCovariance(a, b []float64) float64 {
	if len(a) < 2 {
		return 0
	}
	ma, mb := mean(a), mean(b)
	sum := 0.0
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a)-1)
}

// percentile returns the p-th percentile (0..100) with linear interpolation
// between closest ranks.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// maxDrawdown returns min(cum/runningMax - 1) over the compounded path.
func maxDrawdown(returns []float64) float64 {
	cum := 1.0
	peak := math.Inf(-1)
	worst := 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if dd := cum/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// Correlation returns the Pearson correlation of a and b, NaN when either
// side has no dispersion.
func Correlation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return math.NaN()
	}
	sa, sb := sampleStddev(a), sampleStddev(b)
	if sa < epsilon || sb < epsilon {
		return math.NaN()
	}
	return sampleCovariance(a, b) / (sa * sb)
}
