// Package history persists every analysis run so that past recommendations
// for a symbol can be listed later.
package history

import (
	"context"
	"time"

	"github.com/seenimoa/stockscore/pkg/models"
)

// DefaultLimit is the number of entries Latest returns for limit <= 0.
const DefaultLimit = 20

// Entry is one stored analysis.
type Entry struct {
	ID             int64                 `json:"id"`
	Symbol         string                `json:"symbol"`
	AsOf           time.Time             `json:"as_of"`
	Score          models.Value          `json:"score"`
	Recommendation models.Recommendation `json:"recommendation"`
	CreatedAt      time.Time             `json:"created_at"`
	Result         models.AnalysisResult `json:"result"`
}

// Recorder persists analysis results.
type Recorder interface {
	Append(ctx context.Context, res models.AnalysisResult) error
	Latest(ctx context.Context, symbol string, limit int) ([]Entry, error)
	Close() error
}

// NoopRecorder is used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (NoopRecorder) Append(context.Context, models.AnalysisResult) error { return nil }
func (NoopRecorder) Latest(context.Context, string, int) ([]Entry, error) {
	return nil, nil
}
func (NoopRecorder) Close() error { return nil }
