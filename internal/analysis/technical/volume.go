package technical

import (
	"github.com/seenimoa/stockscore/pkg/models"
)

// OBV calculates On-Balance Volume: the running sum of volume, negated on
// bars that close below the previous close.
func OBV(series models.Series) models.Line {
	n := len(series)
	obv := make(models.Line, n)
	if n == 0 {
		return obv
	}

	obv[0] = float64(series[0].Volume)
	for i := 1; i < n; i++ {
		vol := float64(series[i].Volume)
		if series[i].Close < series[i-1].Close {
			vol = -vol
		}
		obv[i] = obv[i-1] + vol
	}
	return obv
}

// CMF calculates Chaikin Money Flow over period bars. A bar with no range,
// or a window with zero volume, is undefined.
func CMF(series models.Series, period int) models.Line {
	if period <= 0 {
		period = DefaultCMFPeriod
	}
	n := len(series)
	mfv := models.NewLine(n)
	for i, b := range series {
		hl := b.High - b.Low
		if hl == 0 {
			continue
		}
		mfm := ((b.Close - b.Low) - (b.High - b.Close)) / hl
		mfv[i] = mfm * float64(b.Volume)
	}

	flow := rollingSum(mfv, period)
	vol := rollingSum(series.Volumes(), period)
	cmf := models.NewLine(n)
	for i := range cmf {
		if vol[i] == 0 {
			continue
		}
		cmf[i] = flow[i] / vol[i]
	}
	return cmf
}

// ROC calculates the percentage rate of change over period bars.
func ROC(series models.Series, period int) models.Line {
	if period <= 0 {
		period = DefaultROCPeriod
	}
	n := len(series)
	roc := models.NewLine(n)
	for i := period; i < n; i++ {
		base := series[i-period].Close
		if base == 0 {
			continue
		}
		roc[i] = (series[i].Close - base) / base * 100
	}
	return roc
}
