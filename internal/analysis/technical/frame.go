package technical

import (
	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Periods configures the lookbacks of ComputeFrame. Zero fields select the
// indicator defaults.
type Periods struct {
	RSI        int     `mapstructure:"rsi"         yaml:"rsi"         validate:"gt=0"`
	MACDFast   int     `mapstructure:"macd_fast"   yaml:"macd_fast"   validate:"gt=0"`
	MACDSlow   int     `mapstructure:"macd_slow"   yaml:"macd_slow"   validate:"gt=0"`
	MACDSignal int     `mapstructure:"macd_signal" yaml:"macd_signal" validate:"gt=0"`
	BB         int     `mapstructure:"bb"          yaml:"bb"          validate:"gt=0"`
	BBMult     float64 `mapstructure:"bb_k"        yaml:"bb_k"        validate:"gt=0"`
	ATR        int     `mapstructure:"atr"         yaml:"atr"         validate:"gt=0"`
	ADX        int     `mapstructure:"adx"         yaml:"adx"         validate:"gt=0"`
	Aroon      int     `mapstructure:"aroon"       yaml:"aroon"       validate:"gt=0"`
	CMF        int     `mapstructure:"cmf"         yaml:"cmf"         validate:"gt=0"`
	ROC        int     `mapstructure:"roc"         yaml:"roc"         validate:"gt=0"`
}

// DefaultPeriods returns the documented default lookbacks.
func DefaultPeriods() Periods {
	return Periods{
		RSI:        DefaultRSIPeriod,
		MACDFast:   DefaultMACDFast,
		MACDSlow:   DefaultMACDSlow,
		MACDSignal: DefaultMACDSignal,
		BB:         DefaultBBPeriod,
		BBMult:     DefaultBBMult,
		ATR:        DefaultATRPeriod,
		ADX:        DefaultADXPeriod,
		Aroon:      DefaultAroonPeriod,
		CMF:        DefaultCMFPeriod,
		ROC:        DefaultROCPeriod,
	}
}

// ComputeFrame calculates every indicator for series. A fault inside an
// indicator is recovered and yields an all-undefined frame.
func ComputeFrame(series models.Series, p Periods) (frame models.IndicatorFrame) {
	defer func() {
		if r := recover(); r != nil {
			err := &models.ComputationError{Component: "indicators", Cause: r}
			log.Error().Err(err).Int("bars", len(series)).Msg("indicator computation failed")
			frame = models.UndefinedFrame(len(series))
		}
	}()

	macd := MACD(series, p.MACDFast, p.MACDSlow, p.MACDSignal)
	bb := BollingerBands(series, p.BB, p.BBMult)
	aroon := Aroon(series, p.Aroon)

	return models.IndicatorFrame{
		Len: len(series),
		Lines: map[string]models.Line{
			models.IndRSI:        RSI(series, p.RSI),
			models.IndMACD:       macd.MACD,
			models.IndMACDSignal: macd.Signal,
			models.IndMACDHist:   macd.Histogram,
			models.IndBBUpper:    bb.Upper,
			models.IndBBMiddle:   bb.Middle,
			models.IndBBLower:    bb.Lower,
			models.IndATR:        ATR(series, p.ATR),
			models.IndADX:        ADX(series, p.ADX),
			models.IndAroonUp:    aroon.Up,
			models.IndAroonDown:  aroon.Down,
			models.IndOBV:        OBV(series),
			models.IndCMF:        CMF(series, p.CMF),
			models.IndROC:        ROC(series, p.ROC),
		},
	}
}
