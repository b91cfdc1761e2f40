package fundamental

import (
	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Score weights for the overall fundamental score.
const (
	weightPE            = 0.20
	weightPB            = 0.15
	weightProfitMargin  = 0.20
	weightCurrentRatio  = 0.15
	weightRevenueGrowth = 0.30
)

// Analyze computes every ratio whose inputs are present in raw, plus the
// overall score. When statement fields are missing, the five scored ratios
// fall back to the provider-reported values (fractions scaled to percent).
func Analyze(raw models.RawFundamentals) (r models.FundamentalRatios) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &models.ComputationError{Component: "fundamentals", Cause: rec}
			log.Error().Err(err).Msg("fundamental analysis failed")
			r = models.FundamentalRatios{}
		}
	}()

	if len(raw) == 0 {
		return r
	}

	if raw.Has(models.FieldPrice, models.FieldEPS) {
		r.PE = models.Of(PERatio(raw[models.FieldPrice], raw[models.FieldEPS]))
	} else {
		r.PE = raw.Get(models.FieldTrailingPE)
	}
	if raw.Has(models.FieldPrice, models.FieldBookValue) {
		r.PB = models.Of(PBRatio(raw[models.FieldPrice], raw[models.FieldBookValue]))
	} else {
		r.PB = raw.Get(models.FieldPriceToBook)
	}
	if raw.Has(models.FieldPrice, models.FieldSalesPerShare) {
		r.PS = models.Of(PSRatio(raw[models.FieldPrice], raw[models.FieldSalesPerShare]))
	} else {
		r.PS = raw.Get(models.FieldPriceToSales)
	}
	if pe, ok := r.PE.Get(); ok && raw.Has(models.FieldGrowthRate) {
		r.PEG = models.Of(PEGRatio(pe, raw[models.FieldGrowthRate]))
	}
	if raw.Has(models.FieldDividendPerShare, models.FieldPrice) {
		r.DividendYield = models.Of(DividendYield(raw[models.FieldDividendPerShare], raw[models.FieldPrice]))
	}
	if raw.Has(models.FieldNetIncome, models.FieldShareholderEquity) {
		r.ROE = models.Of(ReturnOnEquity(raw[models.FieldNetIncome], raw[models.FieldShareholderEquity]))
	}
	if raw.Has(models.FieldTotalDebt, models.FieldShareholderEquity) {
		r.DebtToEquity = models.Of(DebtToEquity(raw[models.FieldTotalDebt], raw[models.FieldShareholderEquity]))
	}
	if raw.Has(models.FieldCurrentAssets, models.FieldCurrentLiabilities) {
		r.CurrentRatio = models.Of(CurrentRatio(raw[models.FieldCurrentAssets], raw[models.FieldCurrentLiabilities]))
	} else {
		r.CurrentRatio = raw.Get(models.FieldCurrentRatio)
	}
	if raw.Has(models.FieldCurrentAssets, models.FieldInventory, models.FieldCurrentLiabilities) {
		r.QuickRatio = models.Of(QuickRatio(raw[models.FieldCurrentAssets], raw[models.FieldInventory], raw[models.FieldCurrentLiabilities]))
	}
	if raw.Has(models.FieldNetIncome, models.FieldRevenue) {
		r.ProfitMargin = models.Of(ProfitMargin(raw[models.FieldNetIncome], raw[models.FieldRevenue]))
	} else {
		r.ProfitMargin = percent(raw.Get(models.FieldProfitMargins))
	}
	if raw.Has(models.FieldCurrentRevenue, models.FieldPreviousRevenue) {
		r.RevenueGrowth = models.Of(GrowthRate(raw[models.FieldCurrentRevenue], raw[models.FieldPreviousRevenue]))
	} else {
		r.RevenueGrowth = percent(raw.Get(models.FieldRevenueGrowth))
	}

	r.OverallScore = OverallScore(r)
	return r
}

func percent(v models.Value) models.Value {
	if f, ok := v.Get(); ok {
		return models.Of(f * 100)
	}
	return v
}

// OverallScore is the weighted mean of the tiered per-metric scores over the
// metrics that are available. It is undefined when none are.
func OverallScore(r models.FundamentalRatios) models.Value {
	var sum, weights float64
	add := func(v models.Value, w float64, tier func(float64) float64) {
		f, ok := v.Get()
		if !ok {
			return
		}
		sum += tier(f) * w
		weights += w
	}

	add(r.PE, weightPE, func(v float64) float64 {
		return tiered(v > 0 && v < 15, v >= 15 && v < 25)
	})
	add(r.PB, weightPB, func(v float64) float64 {
		return tiered(v > 0 && v < 3, v >= 3 && v < 5)
	})
	add(r.ProfitMargin, weightProfitMargin, func(v float64) float64 {
		return tiered(v > 20, v >= 10 && v <= 20)
	})
	add(r.CurrentRatio, weightCurrentRatio, func(v float64) float64 {
		return tiered(v > 2, v >= 1 && v <= 2)
	})
	add(r.RevenueGrowth, weightRevenueGrowth, func(v float64) float64 {
		return tiered(v > 20, v >= 5 && v <= 20)
	})

	if weights == 0 {
		return models.Undefined()
	}
	return models.Of(sum / weights)
}

func tiered(full, half bool) float64 {
	switch {
	case full:
		return 1.0
	case half:
		return 0.5
	default:
		return 0
	}
}

// Metrics assembles the fundamentals used by the scoring engine. Valuation
// and liquidity ratios come from r; growth and margins stay provider
// fractions.
func Metrics(raw models.RawFundamentals, r models.FundamentalRatios) models.FundamentalMetrics {
	de := raw.Get(models.FieldDebtToEquity)
	if !de.Defined() {
		de = r.DebtToEquity
	}
	return models.FundamentalMetrics{
		PERatio:         r.PE,
		PBRatio:         r.PB,
		PSRatio:         r.PS,
		RevenueGrowth:   raw.Get(models.FieldRevenueGrowth),
		EarningsGrowth:  raw.Get(models.FieldEarningsGrowth),
		ProfitMargin:    raw.Get(models.FieldProfitMargins),
		OperatingMargin: raw.Get(models.FieldOperatingMargin),
		DebtToEquity:    de,
		CurrentRatio:    r.CurrentRatio,
	}
}
