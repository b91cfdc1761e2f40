package models

import "time"

// Recommendation is the categorical outcome of the scoring engine.
type Recommendation string

const (
	StrongBuy Recommendation = "STRONG_BUY"
	Buy       Recommendation = "BUY"
	Hold      Recommendation = "HOLD"
	Watch     Recommendation = "WATCH"
	Sell      Recommendation = "SELL"
	WeakSell  Recommendation = "WEAK_SELL"
	Unable    Recommendation = "UNABLE"
)

// IsBullish reports whether r is StrongBuy or Buy.
func (r Recommendation) IsBullish() bool {
	return r == StrongBuy || r == Buy
}

// Indicator names used as IndicatorFrame keys.
const (
	IndRSI        = "rsi"
	IndMACD       = "macd"
	IndMACDSignal = "macd_signal"
	IndMACDHist   = "macd_hist"
	IndBBUpper    = "bb_upper"
	IndBBMiddle   = "bb_middle"
	IndBBLower    = "bb_lower"
	IndATR        = "atr"
	IndADX        = "adx"
	IndAroonUp    = "aroon_up"
	IndAroonDown  = "aroon_down"
	IndOBV        = "obv"
	IndCMF        = "cmf"
	IndROC        = "roc"
)

// IndicatorNames lists every indicator a full frame carries, in display order.
var IndicatorNames = []string{
	IndRSI, IndMACD, IndMACDSignal, IndMACDHist,
	IndBBUpper, IndBBMiddle, IndBBLower, IndATR,
	IndADX, IndAroonUp, IndAroonDown, IndOBV, IndCMF, IndROC,
}

// IndicatorFrame maps indicator names to lines aligned with the source Series.
type IndicatorFrame struct {
	Len   int             `json:"len"`
	Lines map[string]Line `json:"-"`
}

// Line returns the named line, or an all-undefined line when absent.
func (f IndicatorFrame) Line(name string) Line {
	if l, ok := f.Lines[name]; ok && len(l) == f.Len {
		return l
	}
	return NewLine(f.Len)
}

// Latest returns the last value of the named line.
func (f IndicatorFrame) Latest(name string) Value {
	return f.Line(name).Last()
}

// UndefinedFrame returns a frame of length n where every indicator is undefined.
func UndefinedFrame(n int) IndicatorFrame {
	f := IndicatorFrame{Len: n, Lines: make(map[string]Line, len(IndicatorNames))}
	for _, name := range IndicatorNames {
		f.Lines[name] = NewLine(n)
	}
	return f
}

// RiskMetrics holds point-in-time risk statistics of an instrument against
// its benchmark.
type RiskMetrics struct {
	Beta        Value `json:"beta"`
	Alpha       Value `json:"alpha"`
	Sharpe      Value `json:"sharpe"`
	Treynor     Value `json:"treynor"`
	VaR95       Value `json:"var_95"`
	MaxDrawdown Value `json:"max_drawdown"`
	Volatility  Value `json:"volatility"`
}

// FundamentalMetrics holds the provider-reported fundamentals used in scoring.
type FundamentalMetrics struct {
	PERatio         Value `json:"pe_ratio"`
	PBRatio         Value `json:"pb_ratio"`
	PSRatio         Value `json:"ps_ratio"`
	RevenueGrowth   Value `json:"revenue_growth"`
	EarningsGrowth  Value `json:"earnings_growth"`
	ProfitMargin    Value `json:"profit_margin"`
	OperatingMargin Value `json:"operating_margin"`
	DebtToEquity    Value `json:"debt_to_equity"`
	CurrentRatio    Value `json:"current_ratio"`
}

// FundamentalRatios holds ratios derived from raw financial fields.
type FundamentalRatios struct {
	PE            Value `json:"pe"`
	PB            Value `json:"pb"`
	PS            Value `json:"ps"`
	PEG           Value `json:"peg"`
	DividendYield Value `json:"dividend_yield"`
	ROE           Value `json:"roe"`
	DebtToEquity  Value `json:"debt_to_equity"`
	CurrentRatio  Value `json:"current_ratio"`
	QuickRatio    Value `json:"quick_ratio"`
	ProfitMargin  Value `json:"profit_margin"`
	RevenueGrowth Value `json:"revenue_growth"`
	OverallScore  Value `json:"overall_score"`
}

// SentimentSnapshot holds the technical sentiment flags.
type SentimentSnapshot struct {
	Oversold    bool    `json:"oversold"`
	Overbought  bool    `json:"overbought"`
	GoldenCross bool    `json:"golden_cross"`
	DeathCross  bool    `json:"death_cross"`
	VolumeTrend float64 `json:"volume_trend"`
}

// TrendStrength summarises the latest trend indicators. Undefined inputs
// are reported as 0.
type TrendStrength struct {
	ADXStrength float64 `json:"adx_strength"`
	AroonTrend  float64 `json:"aroon_trend"`
	MACDTrend   float64 `json:"macd_trend"`
}

// PatternType identifies a chart pattern.
type PatternType string

const (
	PatternDoubleBottom     PatternType = "DOUBLE_BOTTOM"
	PatternBreakout         PatternType = "BREAKOUT"
	PatternHeadAndShoulders PatternType = "HEAD_AND_SHOULDERS"
)

// TechnicalPattern is a discrete chart pattern event.
type TechnicalPattern struct {
	Type        PatternType `json:"type"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Confidence  float64     `json:"confidence"`
	Description string      `json:"description"`
}

// PriceLevel is a support or resistance point.
type PriceLevel struct {
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// SupportResistance holds accumulated support and resistance points.
type SupportResistance struct {
	Support    []PriceLevel `json:"support"`
	Resistance []PriceLevel `json:"resistance"`
}

// ScoreBreakdown holds the normalised category sub-scores.
type ScoreBreakdown struct {
	Technical   float64 `json:"technical"`
	Risk        float64 `json:"risk"`
	Fundamental float64 `json:"fundamental"`
	Sentiment   float64 `json:"sentiment"`
}

// IndicatorSnapshot echoes the latest values of key indicators.
type IndicatorSnapshot struct {
	RSI      Value `json:"rsi"`
	MACD     Value `json:"macd"`
	MACDHist Value `json:"macd_hist"`
	ATR      Value `json:"atr"`
}

// PriceBand is a naive next-day price range.
type PriceBand struct {
	Lower      float64 `json:"lower"`
	Prediction float64 `json:"prediction"`
	Upper      float64 `json:"upper"`
}

// AnalysisResult is the complete output of one analysis run.
type AnalysisResult struct {
	Symbol         string             `json:"symbol"`
	Benchmark      string             `json:"benchmark"`
	AsOf           time.Time          `json:"as_of"`
	LastClose      float64            `json:"last_close"`
	Score          Value              `json:"score"`
	Recommendation Recommendation     `json:"recommendation"`
	Breakdown      ScoreBreakdown     `json:"breakdown"`
	Reasons        []string           `json:"reasons"`
	Indicators     IndicatorSnapshot  `json:"indicators"`
	Risk           RiskMetrics        `json:"risk"`
	Fundamentals   FundamentalMetrics `json:"fundamentals"`
	Ratios         FundamentalRatios  `json:"ratios"`
	Sentiment      SentimentSnapshot  `json:"sentiment"`
	Trend          TrendStrength      `json:"trend"`
	Patterns       []TechnicalPattern `json:"patterns"`
	Levels         SupportResistance  `json:"levels"`
	NextDay        *PriceBand         `json:"next_day,omitempty"`
	News           *NewsSentiment     `json:"news,omitempty"`
}
