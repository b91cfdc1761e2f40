// Package report exports analysis results as JSON, flattened CSV, Excel
// workbooks and terminal text.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/seenimoa/stockscore/internal/analysis/technical"
	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Formats
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatText Format = "text"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatJSON, FormatCSV, FormatXLSX, FormatText:
		return f, nil
	case "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ════════════════════════════════════════════════════════════════════
// Flattening
// ════════════════════════════════════════════════════════════════════

// Field is one flattened key/value pair.
type Field struct {
	Key   string
	Value string
}

// cell formats a Value for export: empty when undefined.
func cell(v models.Value) string {
	f, ok := v.Get()
	switch {
	case !ok:
		return ""
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return num(f)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Flatten turns a result into ordered key/value rows. Nested sections use
// dotted keys; list entries are numbered from 1.
func Flatten(res models.AnalysisResult) []Field {
	var out []Field
	add := func(k, v string) { out = append(out, Field{k, v}) }
	addV := func(k string, v models.Value) { add(k, cell(v)) }

	add("symbol", res.Symbol)
	add("benchmark", res.Benchmark)
	if !res.AsOf.IsZero() {
		add("as_of", res.AsOf.Format("2006-01-02"))
	} else {
		add("as_of", "")
	}
	add("last_close", num(res.LastClose))
	addV("score", res.Score)
	add("recommendation", string(res.Recommendation))

	add("breakdown.technical", num(res.Breakdown.Technical))
	add("breakdown.risk", num(res.Breakdown.Risk))
	add("breakdown.fundamental", num(res.Breakdown.Fundamental))
	add("breakdown.sentiment", num(res.Breakdown.Sentiment))
	for i, r := range res.Reasons {
		add(fmt.Sprintf("reason.%d", i+1), r)
	}

	addV("indicators.rsi", res.Indicators.RSI)
	addV("indicators.macd", res.Indicators.MACD)
	addV("indicators.macd_hist", res.Indicators.MACDHist)
	addV("indicators.atr", res.Indicators.ATR)

	for _, kv := range riskFields(res.Risk) {
		addV("risk."+kv.name, kv.v)
	}
	for _, kv := range fundamentalFields(res.Fundamentals) {
		addV("fundamentals."+kv.name, kv.v)
	}
	for _, kv := range ratioFields(res.Ratios) {
		addV("ratios."+kv.name, kv.v)
	}

	add("sentiment.oversold", strconv.FormatBool(res.Sentiment.Oversold))
	add("sentiment.overbought", strconv.FormatBool(res.Sentiment.Overbought))
	add("sentiment.golden_cross", strconv.FormatBool(res.Sentiment.GoldenCross))
	add("sentiment.death_cross", strconv.FormatBool(res.Sentiment.DeathCross))
	add("sentiment.volume_trend", num(res.Sentiment.VolumeTrend))

	add("trend.adx_strength", num(res.Trend.ADXStrength))
	add("trend.aroon_trend", num(res.Trend.AroonTrend))
	add("trend.macd_trend", num(res.Trend.MACDTrend))

	for i, p := range res.Patterns {
		prefix := fmt.Sprintf("pattern.%d.", i+1)
		add(prefix+"type", string(p.Type))
		add(prefix+"start", p.StartDate.Format("2006-01-02"))
		add(prefix+"end", p.EndDate.Format("2006-01-02"))
		add(prefix+"confidence", num(p.Confidence))
		add(prefix+"description", p.Description)
	}
	for i, l := range res.Levels.Support {
		add(fmt.Sprintf("support.%d", i+1), fmt.Sprintf("%s@%s", num(l.Price), l.Date.Format("2006-01-02")))
	}
	for i, l := range res.Levels.Resistance {
		add(fmt.Sprintf("resistance.%d", i+1), fmt.Sprintf("%s@%s", num(l.Price), l.Date.Format("2006-01-02")))
	}

	if b := res.NextDay; b != nil {
		add("next_day.lower", num(b.Lower))
		add("next_day.prediction", num(b.Prediction))
		add("next_day.upper", num(b.Upper))
	}
	if n := res.News; n != nil {
		add("news.score", num(n.Score))
		add("news.confidence", num(n.Confidence))
		add("news.label", n.Label)
		add("news.article_count", strconv.Itoa(n.ArticleCount))
	}
	return out
}

type namedValue struct {
	name string
	v    models.Value
}

func riskFields(r models.RiskMetrics) []namedValue {
	return []namedValue{
		{"beta", r.Beta}, {"alpha", r.Alpha}, {"sharpe", r.Sharpe}, {"treynor", r.Treynor},
		{"var_95", r.VaR95}, {"max_drawdown", r.MaxDrawdown}, {"volatility", r.Volatility},
	}
}

func fundamentalFields(f models.FundamentalMetrics) []namedValue {
	return []namedValue{
		{"pe_ratio", f.PERatio}, {"pb_ratio", f.PBRatio}, {"ps_ratio", f.PSRatio},
		{"revenue_growth", f.RevenueGrowth}, {"earnings_growth", f.EarningsGrowth},
		{"profit_margin", f.ProfitMargin}, {"operating_margin", f.OperatingMargin},
		{"debt_to_equity", f.DebtToEquity}, {"current_ratio", f.CurrentRatio},
	}
}

func ratioFields(r models.FundamentalRatios) []namedValue {
	return []namedValue{
		{"pe", r.PE}, {"pb", r.PB}, {"ps", r.PS}, {"peg", r.PEG},
		{"dividend_yield", r.DividendYield}, {"roe", r.ROE}, {"debt_to_equity", r.DebtToEquity},
		{"current_ratio", r.CurrentRatio}, {"quick_ratio", r.QuickRatio},
		{"profit_margin", r.ProfitMargin}, {"revenue_growth", r.RevenueGrowth},
		{"overall_score", r.OverallScore},
	}
}

// ════════════════════════════════════════════════════════════════════
// Writers
// ════════════════════════════════════════════════════════════════════

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}

// WriteCSV writes the flattened result as key,value rows.
func WriteCSV(w io.Writer, res models.AnalysisResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"key", "value"}); err != nil {
		return err
	}
	for _, f := range Flatten(res) {
		if err := cw.Write([]string{f.Key, f.Value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ComparisonHeader is the column order of WriteComparisonCSV.
var ComparisonHeader = []string{
	"symbol", "last_price", "change_pct", "volume", "rsi", "beta",
	"sharpe", "volatility", "score", "recommendation",
}

// ComparisonRecord formats one comparison row in ComparisonHeader order.
func ComparisonRecord(r pipeline.ComparisonRow) []string {
	return []string{
		r.Symbol, num(r.LastPrice), cell(r.ChangePct), strconv.FormatInt(r.Volume, 10),
		cell(r.RSI), cell(r.Beta), cell(r.Sharpe), cell(r.Volatility),
		cell(r.Score), string(r.Recommendation),
	}
}

// WriteComparisonCSV writes one row per compared symbol.
func WriteComparisonCSV(w io.Writer, cmp pipeline.Comparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ComparisonHeader); err != nil {
		return err
	}
	for _, r := range cmp.Rows {
		if err := cw.Write(ComparisonRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write renders res in format f. series and periods are only used by the
// workbook's Indicators sheet and may be empty.
func Write(w io.Writer, f Format, res models.AnalysisResult, series models.Series, periods technical.Periods) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatCSV:
		return WriteCSV(w, res)
	case FormatXLSX:
		return WriteXLSX(w, res, series, periods)
	case FormatText:
		_, err := io.WriteString(w, FormatResult(res))
		return err
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// ExportFile writes res to path, picking the format from the extension.
// Missing parent directories are created.
func ExportFile(path string, res models.AnalysisResult, series models.Series, periods technical.Periods) error {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(out, f, res, series, periods); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// DefaultFileName returns "<symbol>_<yyyymmdd>.<ext>" for res.
func DefaultFileName(res models.AnalysisResult, f Format) string {
	ext := string(f)
	if f == FormatText {
		ext = "txt"
	}
	sym := strings.NewReplacer("^", "", "/", "_", ".", "_").Replace(res.Symbol)
	return fmt.Sprintf("%s_%s.%s", sym, res.AsOf.Format("20060102"), ext)
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

// FormatResult renders a terminal-friendly summary of res.
func FormatResult(res models.AnalysisResult) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString(line + "\n")
	sb.WriteString(fmt.Sprintf("  %s vs %s", res.Symbol, res.Benchmark))
	if !res.AsOf.IsZero() {
		sb.WriteString(fmt.Sprintf(" | %s", res.AsOf.Format("2006-01-02")))
	}
	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  Recommendation: %s (score %s)\n", res.Recommendation, res.Score))
	if res.LastClose > 0 {
		sb.WriteString(fmt.Sprintf("  Last close: %.2f\n", res.LastClose))
	}
	if b := res.NextDay; b != nil {
		sb.WriteString(fmt.Sprintf("  Next day: %.2f (%.2f to %.2f)\n", b.Prediction, b.Lower, b.Upper))
	}
	sb.WriteString(thinLine + "\n")

	sb.WriteString(fmt.Sprintf("  Technical %.2f | Risk %.2f | Fundamental %.2f | Sentiment %.2f\n",
		res.Breakdown.Technical, res.Breakdown.Risk, res.Breakdown.Fundamental, res.Breakdown.Sentiment))
	for _, r := range res.Reasons {
		sb.WriteString(fmt.Sprintf("    • %s\n", r))
	}
	sb.WriteString(thinLine + "\n")

	writeSection := func(title string, rows []namedValue) {
		sb.WriteString(fmt.Sprintf("  ■ %s\n", title))
		for _, r := range rows {
			sb.WriteString(fmt.Sprintf("    %-18s %s\n", r.name, r.v))
		}
	}
	writeSection("INDICATORS", []namedValue{
		{"rsi", res.Indicators.RSI}, {"macd", res.Indicators.MACD},
		{"macd_hist", res.Indicators.MACDHist}, {"atr", res.Indicators.ATR},
	})
	writeSection("RISK", riskFields(res.Risk))
	writeSection("FUNDAMENTALS", fundamentalFields(res.Fundamentals))

	if len(res.Patterns) > 0 {
		sb.WriteString("  ■ PATTERNS\n")
		for _, p := range res.Patterns {
			sb.WriteString(fmt.Sprintf("    %-18s %s (%.0f%%)\n", p.Type, p.EndDate.Format("2006-01-02"), p.Confidence*100))
		}
	}
	if n := res.News; n != nil {
		sb.WriteString(fmt.Sprintf("  ■ NEWS: %s (%.2f, %d articles)\n", n.Label, n.Score, n.ArticleCount))
	}
	sb.WriteString(line + "\n")
	return sb.String()
}
