package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/stockscore/internal/analysis/technical"
	"github.com/seenimoa/stockscore/pkg/models"
)

// Workbook sheet names, in order.
const (
	SheetSummary      = "Summary"
	SheetIndicators   = "Indicators"
	SheetRisk         = "Risk"
	SheetFundamentals = "Fundamentals"
	SheetPatterns     = "Patterns"
)

// WriteXLSX writes res as an Excel workbook. When series is not empty the
// Indicators sheet holds every bar with the full indicator frame; otherwise
// it holds the latest snapshot only.
func WriteXLSX(w io.Writer, res models.AnalysisResult, series models.Series, periods technical.Periods) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("renaming summary sheet: %w", err)
	}
	for _, name := range []string{SheetIndicators, SheetRisk, SheetFundamentals, SheetPatterns} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	steps := []func() error{
		func() error { return writeSummarySheet(f, res) },
		func() error { return writeIndicatorSheet(f, res, series, periods) },
		func() error { return writeValueSheet(f, SheetRisk, riskFields(res.Risk)) },
		func() error {
			rows := append(fundamentalFields(res.Fundamentals), prefixed("ratio.", ratioFields(res.Ratios))...)
			return writeValueSheet(f, SheetFundamentals, rows)
		},
		func() error { return writePatternSheet(f, res) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	for _, name := range f.GetSheetList() {
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func prefixed(p string, rows []namedValue) []namedValue {
	out := make([]namedValue, len(rows))
	for i, r := range rows {
		out[i] = namedValue{p + r.name, r.v}
	}
	return out
}

// xlValue converts a float for a cell: nil for NaN, text for infinities.
func xlValue(f float64) any {
	switch {
	case math.IsNaN(f):
		return nil
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	addr, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, addr, &values)
}

func writeSummarySheet(f *excelize.File, res models.AnalysisResult) error {
	if err := setRow(f, SheetSummary, 1, []any{"Metric", "Value"}); err != nil {
		return err
	}
	rows := [][]any{
		{"Symbol", res.Symbol},
		{"Benchmark", res.Benchmark},
		{"As of", res.AsOf.Format("2006-01-02")},
		{"Last close", res.LastClose},
		{"Recommendation", string(res.Recommendation)},
		{"Score", xlValue(res.Score.Float())},
		{"Technical", res.Breakdown.Technical},
		{"Risk", res.Breakdown.Risk},
		{"Fundamental", res.Breakdown.Fundamental},
		{"Sentiment", res.Breakdown.Sentiment},
	}
	if b := res.NextDay; b != nil {
		rows = append(rows,
			[]any{"Next day lower", b.Lower},
			[]any{"Next day prediction", b.Prediction},
			[]any{"Next day upper", b.Upper})
	}
	if n := res.News; n != nil {
		rows = append(rows, []any{"News sentiment", n.Label}, []any{"News score", n.Score})
	}
	for i, r := range res.Reasons {
		rows = append(rows, []any{fmt.Sprintf("Reason %d", i+1), r})
	}
	for i, r := range rows {
		if err := setRow(f, SheetSummary, i+2, r); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 28)
}

func writeIndicatorSheet(f *excelize.File, res models.AnalysisResult, series models.Series, periods technical.Periods) error {
	if len(series) == 0 {
		rows := [][]any{
			{"Indicator", "Latest"},
			{"rsi", xlValue(res.Indicators.RSI.Float())},
			{"macd", xlValue(res.Indicators.MACD.Float())},
			{"macd_hist", xlValue(res.Indicators.MACDHist.Float())},
			{"atr", xlValue(res.Indicators.ATR.Float())},
		}
		for i, r := range rows {
			if err := setRow(f, SheetIndicators, i+1, r); err != nil {
				return err
			}
		}
		return nil
	}

	frame := technical.ComputeFrame(series, periods)
	header := []any{"Date", "Open", "High", "Low", "Close", "Volume"}
	for _, name := range models.IndicatorNames {
		header = append(header, name)
	}
	if err := setRow(f, SheetIndicators, 1, header); err != nil {
		return err
	}
	lines := make([]models.Line, len(models.IndicatorNames))
	for j, name := range models.IndicatorNames {
		lines[j] = frame.Line(name)
	}
	for i, bar := range series {
		row := []any{bar.Timestamp.Format("2006-01-02"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume}
		for _, l := range lines {
			row = append(row, xlValue(l[i]))
		}
		if err := setRow(f, SheetIndicators, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeValueSheet(f *excelize.File, sheet string, rows []namedValue) error {
	if err := setRow(f, sheet, 1, []any{"Metric", "Value"}); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, sheet, i+2, []any{r.name, xlValue(r.v.Float())}); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 22)
}

func writePatternSheet(f *excelize.File, res models.AnalysisResult) error {
	if err := setRow(f, SheetPatterns, 1, []any{"Kind", "Type", "Start", "End", "Price", "Confidence", "Description"}); err != nil {
		return err
	}
	row := 2
	for _, p := range res.Patterns {
		vals := []any{"pattern", string(p.Type), p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"), nil, p.Confidence, p.Description}
		if err := setRow(f, SheetPatterns, row, vals); err != nil {
			return err
		}
		row++
	}
	levels := []struct {
		kind   string
		points []models.PriceLevel
	}{{"support", res.Levels.Support}, {"resistance", res.Levels.Resistance}}
	for _, lv := range levels {
		for _, l := range lv.points {
			d := l.Date.Format("2006-01-02")
			if err := setRow(f, SheetPatterns, row, []any{lv.kind, "", d, d, l.Price, nil, ""}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}
