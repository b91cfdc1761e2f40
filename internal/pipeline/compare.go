package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockscore/internal/analysis/risk"
	"github.com/seenimoa/stockscore/pkg/models"
)

// ComparisonRow is one line of the side-by-side comparison table.
type ComparisonRow struct {
	Symbol         string                `json:"symbol"`
	LastPrice      float64               `json:"last_price"`
	ChangePct      models.Value          `json:"change_pct"`
	Volume         int64                 `json:"volume"`
	RSI            models.Value          `json:"rsi"`
	Beta           models.Value          `json:"beta"`
	Sharpe         models.Value          `json:"sharpe"`
	Volatility     models.Value          `json:"volatility"`
	Score          models.Value          `json:"score"`
	Recommendation models.Recommendation `json:"recommendation"`
}

// CorrelationMatrix holds pairwise correlations of daily returns over the
// dates both instruments traded.
type CorrelationMatrix struct {
	Symbols []string         `json:"symbols"`
	Values  [][]models.Value `json:"values"`
}

// Comparison is the output of Compare. Results and Rows follow input order.
type Comparison struct {
	Results     []models.AnalysisResult `json:"results"`
	Rows        []ComparisonRow         `json:"rows"`
	Correlation CorrelationMatrix       `json:"correlation"`
}

// Compare analyses every input in its own goroutine. Pipelines share no
// state; results are gathered once all have finished. progress, when not
// nil, is called after each pipeline completes.
func (a *Analyzer) Compare(ctx context.Context, inputs []Input, progress func(symbol string)) (Comparison, error) {
	results := make([]models.AnalysisResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.Analyze(in)
			if progress != nil {
				progress(in.Symbol)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	rows := make([]ComparisonRow, len(inputs))
	for i, in := range inputs {
		rows[i] = row(in, results[i])
	}
	return Comparison{
		Results:     results,
		Rows:        rows,
		Correlation: Correlations(inputs),
	}, nil
}

func row(in Input, res models.AnalysisResult) ComparisonRow {
	r := ComparisonRow{
		Symbol:         in.Symbol,
		RSI:            res.Indicators.RSI,
		Beta:           res.Risk.Beta,
		Sharpe:         res.Risk.Sharpe,
		Volatility:     res.Risk.Volatility,
		Score:          res.Score,
		Recommendation: res.Recommendation,
	}
	n := len(in.Series)
	if n == 0 {
		return r
	}
	last := in.Series[n-1]
	r.LastPrice = last.Close
	r.Volume = last.Volume
	if n > 1 && in.Series[n-2].Close != 0 {
		prev := in.Series[n-2].Close
		r.ChangePct = models.Of((last.Close - prev) / prev * 100)
	}
	return r
}

// Correlations builds the symmetric return-correlation matrix. Pairs with
// fewer than two common returns, or a constant side, are undefined.
func Correlations(inputs []Input) CorrelationMatrix {
	n := len(inputs)
	m := CorrelationMatrix{
		Symbols: make([]string, n),
		Values:  make([][]models.Value, n),
	}
	for i := range inputs {
		m.Symbols[i] = inputs[i].Symbol
		m.Values[i] = make([]models.Value, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := pairCorrelation(inputs[i].Series, inputs[j].Series)
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m
}

func pairCorrelation(a, b models.Series) models.Value {
	pair, err := risk.Align(a, b)
	if err != nil {
		return models.Undefined()
	}
	ra, rb := pair.Returns()
	if len(ra) < 2 {
		return models.Undefined()
	}
	return models.Of(risk.Correlation(ra, rb))
}
