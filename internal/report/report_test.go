package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/stockscore/internal/analysis/technical"
	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var asOf = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

func sampleBars(n int) models.Series {
	bars := make(models.Series, n)
	start := asOf.AddDate(0, 0, -n+1)
	for i := range bars {
		c := 100 + float64(i%7) - 3 + float64(i)*0.2
		bars[i] = models.OHLCV{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c - 0.5,
			High:      math.Max(c, c-0.5) + 1,
			Low:       math.Min(c, c-0.5) - 1,
			Close:     c,
			Volume:    int64(100000 + i*500),
		}
	}
	return bars
}

func sampleResult() models.AnalysisResult {
	return models.AnalysisResult{
		Symbol:         "AAPL",
		Benchmark:      "^GSPC",
		AsOf:           asOf,
		LastClose:      210.5,
		Score:          models.Of(0.66),
		Recommendation: models.Buy,
		Breakdown:      models.ScoreBreakdown{Technical: 0.8667, Risk: 1, Fundamental: 0, Sentiment: 0.75},
		Reasons:        []string{"strong upward trend", "RSI shows overbought conditions"},
		Indicators: models.IndicatorSnapshot{
			RSI: models.Of(71.2), MACD: models.Of(1.5), MACDHist: models.Of(0.2), ATR: models.Undefined(),
		},
		Risk: models.RiskMetrics{Beta: models.Of(1.1), Sharpe: models.Infinite()},
		Ratios: models.FundamentalRatios{
			PE: models.Of(28),
		},
		Patterns: []models.TechnicalPattern{{
			Type: models.PatternBreakout, StartDate: asOf.AddDate(0, 0, -1), EndDate: asOf,
			Confidence: 0.7, Description: "close above SMA20",
		}},
		Levels: models.SupportResistance{
			Support: []models.PriceLevel{{Price: 200, Date: asOf.AddDate(0, 0, -10)}},
		},
		NextDay: &models.PriceBand{Lower: 205, Prediction: 210.5, Upper: 216},
		News:    &models.NewsSentiment{Score: 0.3, Confidence: 0.5, Label: "Bullish", ArticleCount: 4},
	}
}

func fieldMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

// ════════════════════════════════════════════════════════════════════
// Tests
// ════════════════════════════════════════════════════════════════════

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"json": FormatJSON, ".CSV": FormatCSV, "xlsx": FormatXLSX, "txt": FormatText, " text ": FormatText,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat(".pdf")
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	fields := Flatten(sampleResult())
	require.NotEmpty(t, fields)
	assert.Equal(t, "symbol", fields[0].Key)

	m := fieldMap(fields)
	assert.Equal(t, "AAPL", m["symbol"])
	assert.Equal(t, "2024-06-28", m["as_of"])
	assert.Equal(t, "0.66", m["score"])
	assert.Equal(t, "BUY", m["recommendation"])
	assert.Equal(t, "strong upward trend", m["reason.1"])
	assert.Equal(t, "71.2", m["indicators.rsi"])
	assert.Equal(t, "", m["indicators.atr"], "undefined values export as empty")
	assert.Equal(t, "+Inf", m["risk.sharpe"])
	assert.Equal(t, "28", m["ratios.pe"])
	assert.Equal(t, "BREAKOUT", m["pattern.1.type"])
	assert.Equal(t, "200@2024-06-18", m["support.1"])
	assert.Equal(t, "216", m["next_day.upper"])
	assert.Equal(t, "Bullish", m["news.label"])
}

func TestFlattenUnable(t *testing.T) {
	m := fieldMap(Flatten(models.AnalysisResult{Symbol: "X", Recommendation: models.Unable}))
	assert.Equal(t, "", m["as_of"])
	assert.Equal(t, "", m["score"])
	assert.NotContains(t, m, "next_day.lower")
	assert.NotContains(t, m, "news.label")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "AAPL", decoded["symbol"])
	assert.Equal(t, "BUY", decoded["recommendation"])
	assert.Equal(t, "+Inf", decoded["risk"].(map[string]any)["sharpe"])
	assert.Nil(t, decoded["indicators"].(map[string]any)["atr"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "value"}, records[0])
	assert.Len(t, records, len(Flatten(sampleResult()))+1)
	assert.Equal(t, []string{"symbol", "AAPL"}, records[1])
}

func TestWriteComparisonCSV(t *testing.T) {
	cmp := pipeline.Comparison{Rows: []pipeline.ComparisonRow{
		{Symbol: "AAPL", LastPrice: 210.5, ChangePct: models.Of(1.25), Volume: 1000, RSI: models.Of(60),
			Beta: models.Of(1.1), Sharpe: models.Undefined(), Volatility: models.Of(0.2), Score: models.Of(0.66),
			Recommendation: models.Buy},
		{Symbol: "MSFT", Recommendation: models.Unable},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteComparisonCSV(&buf, cmp))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ComparisonHeader, records[0])
	assert.Equal(t, []string{"AAPL", "210.5", "1.25", "1000", "60", "1.1", "", "0.2", "0.66", "BUY"}, records[1])
	assert.Equal(t, "UNABLE", records[2][9])
}

func TestWriteXLSX(t *testing.T) {
	bars := sampleBars(40)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResult(), bars, technical.DefaultPeriods()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetIndicators, SheetRisk, SheetFundamentals, SheetPatterns}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", v)
	v, err = f.GetCellValue(SheetSummary, "B6")
	require.NoError(t, err)
	assert.Equal(t, "BUY", v)

	rows, err := f.GetRows(SheetIndicators)
	require.NoError(t, err)
	require.Len(t, rows, len(bars)+1)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, models.IndRSI, rows[0][6])
	assert.Equal(t, bars[0].Timestamp.Format("2006-01-02"), rows[1][0])

	risk, err := f.GetRows(SheetRisk)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "1.1"}, risk[1])

	patterns, err := f.GetRows(SheetPatterns)
	require.NoError(t, err)
	require.Len(t, patterns, 3)
	assert.Equal(t, "BREAKOUT", patterns[1][1])
	assert.Equal(t, "support", patterns[2][0])
}

func TestWriteXLSXWithoutSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResult(), nil, technical.DefaultPeriods()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetIndicators)
	require.NoError(t, err)
	assert.Equal(t, []string{"Indicator", "Latest"}, rows[0])
	assert.Equal(t, []string{"rsi", "71.2"}, rows[1])
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()
	for _, f := range []Format{FormatJSON, FormatCSV, FormatXLSX, FormatText} {
		path := filepath.Join(dir, "out", DefaultFileName(res, f))
		require.NoError(t, ExportFile(path, res, sampleBars(30), technical.DefaultPeriods()), f)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Error(t, ExportFile(filepath.Join(dir, "report.pdf"), res, nil, technical.DefaultPeriods()))
}

func TestDefaultFileName(t *testing.T) {
	res := models.AnalysisResult{Symbol: "^TA125.TA", AsOf: asOf}
	assert.Equal(t, "TA125_TA_20240628.csv", DefaultFileName(res, FormatCSV))
	assert.Equal(t, "TA125_TA_20240628.txt", DefaultFileName(res, FormatText))
}

func TestFormatResult(t *testing.T) {
	out := FormatResult(sampleResult())
	for _, want := range []string{"AAPL vs ^GSPC", "BUY", "strong upward trend", "■ RISK", "BREAKOUT", "NEWS: Bullish"} {
		assert.True(t, strings.Contains(out, want), "missing %q", want)
	}
}
