package fundamental

import (
	"math"
	"testing"

	"github.com/seenimoa/stockscore/pkg/models"
)

func sampleFundamentals() models.RawFundamentals {
	return models.RawFundamentals{
		models.FieldPrice:              100,
		models.FieldEPS:                10,
		models.FieldBookValue:          50,
		models.FieldSalesPerShare:      25,
		models.FieldGrowthRate:         5,
		models.FieldDividendPerShare:   2,
		models.FieldNetIncome:          30,
		models.FieldShareholderEquity:  150,
		models.FieldTotalDebt:          75,
		models.FieldCurrentAssets:      300,
		models.FieldCurrentLiabilities: 100,
		models.FieldInventory:          60,
		models.FieldRevenue:            120,
		models.FieldCurrentRevenue:     125,
		models.FieldPreviousRevenue:    100,
	}
}

func TestRatioFormulas(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"pe", PERatio(100, 10), 10},
		{"pb", PBRatio(100, 50), 2},
		{"ps", PSRatio(100, 25), 4},
		{"peg", PEGRatio(10, 5), 2},
		{"dividend yield", DividendYield(2, 100), 2},
		{"roe", ReturnOnEquity(30, 150), 20},
		{"debt/equity", DebtToEquity(75, 150), 0.5},
		{"current", CurrentRatio(300, 100), 3},
		{"quick", QuickRatio(300, 60, 100), 2.4},
		{"profit margin", ProfitMargin(30, 120), 25},
		{"growth", GrowthRate(125, 100), 25},
	}
	for _, tc := range tests {
		if math.Abs(tc.got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %.4f, got %.4f", tc.name, tc.want, tc.got)
		}
	}
}

func TestZeroDenominators(t *testing.T) {
	infinite := map[string]float64{
		"pe":      PERatio(100, 0),
		"pb":      PBRatio(100, 0),
		"ps":      PSRatio(100, 0),
		"peg":     PEGRatio(10, 0),
		"d/e":     DebtToEquity(1, 0),
		"current": CurrentRatio(1, 0),
		"quick":   QuickRatio(1, 0, 0),
		"growth":  GrowthRate(1, 0),
	}
	for name, v := range infinite {
		if !math.IsInf(v, 1) {
			t.Errorf("%s: expected +Inf, got %v", name, v)
		}
	}

	zero := map[string]float64{
		"dividend yield": DividendYield(2, 0),
		"roe":            ReturnOnEquity(1, 0),
		"profit margin":  ProfitMargin(1, 0),
	}
	for name, v := range zero {
		if v != 0 {
			t.Errorf("%s: expected 0, got %v", name, v)
		}
	}
}

func TestAnalyze(t *testing.T) {
	r := Analyze(sampleFundamentals())
	if r.PE.Or(0) != 10 {
		t.Errorf("expected PE 10, got %s", r.PE)
	}
	if r.QuickRatio.Or(0) != 2.4 {
		t.Errorf("expected quick ratio 2.4, got %s", r.QuickRatio)
	}
	// pe 10 -> 1, pb 2 -> 1, margin 25 -> 1, current 3 -> 1, growth 25 -> 1
	if s := r.OverallScore.Or(0); math.Abs(s-1) > 1e-9 {
		t.Errorf("expected overall score 1.0, got %.4f", s)
	}
}

func TestOverallScoreUsesAvailableWeights(t *testing.T) {
	r := models.FundamentalRatios{
		PE:           models.Of(20),  // 0.5 * 0.20
		CurrentRatio: models.Of(0.5), // 0.0 * 0.15
	}
	want := (0.5 * 0.20) / (0.20 + 0.15)
	if s := OverallScore(r).Or(-1); math.Abs(s-want) > 1e-9 {
		t.Errorf("expected %.4f, got %.4f", want, s)
	}
}

func TestOverallScoreInfiniteRatio(t *testing.T) {
	r := models.FundamentalRatios{PE: models.Infinite()}
	if s := OverallScore(r).Or(-1); s != 0 {
		t.Errorf("expected infinite PE to score 0, got %.4f", s)
	}
}

func TestOverallScoreUndefined(t *testing.T) {
	if s := OverallScore(models.FundamentalRatios{}); s.Defined() {
		t.Errorf("expected undefined score, got %s", s)
	}
	if r := Analyze(nil); r.OverallScore.Defined() {
		t.Error("expected undefined score for empty input")
	}
}

func TestAnalyzeProviderFallback(t *testing.T) {
	raw := models.RawFundamentals{
		models.FieldTrailingPE:    18,
		models.FieldProfitMargins: 0.12,
		models.FieldRevenueGrowth: 0.25,
	}
	r := Analyze(raw)
	if r.PE.Or(0) != 18 {
		t.Errorf("expected PE 18, got %s", r.PE)
	}
	if math.Abs(r.ProfitMargin.Or(0)-12) > 1e-9 {
		t.Errorf("expected profit margin 12%%, got %s", r.ProfitMargin)
	}
	// pe 0.5*0.2 + margin 0.5*0.2 + growth 1*0.3 over 0.7
	want := (0.1 + 0.1 + 0.3) / 0.7
	if s := r.OverallScore.Or(0); math.Abs(s-want) > 1e-9 {
		t.Errorf("expected %.4f, got %.4f", want, s)
	}
}

func TestMetrics(t *testing.T) {
	raw := models.RawFundamentals{
		models.FieldTrailingPE:     22,
		models.FieldPriceToBook:    1.5,
		models.FieldRevenueGrowth:  0.15,
		models.FieldEarningsGrowth: 0.2,
		models.FieldCurrentRatio:   1.8,
	}
	mt := Metrics(raw, Analyze(raw))
	if mt.PERatio.Or(0) != 22 || mt.PBRatio.Or(0) != 1.5 || mt.CurrentRatio.Or(0) != 1.8 {
		t.Errorf("unexpected valuation metrics: %+v", mt)
	}
	if mt.RevenueGrowth.Or(0) != 0.15 {
		t.Errorf("expected revenue growth fraction 0.15, got %s", mt.RevenueGrowth)
	}
	if mt.OperatingMargin.Defined() {
		t.Error("expected operating margin undefined")
	}
}
