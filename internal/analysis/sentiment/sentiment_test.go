package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/seenimoa/stockscore/pkg/models"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func TestScoreHeadlineBullish(t *testing.T) {
	score, conf := ScoreHeadline("Acme shares rally 5% on strong growth and positive results")
	if score <= 0 {
		t.Errorf("expected positive score for bullish headline, got %.4f", score)
	}
	if conf <= noSignalConfidence {
		t.Errorf("expected confidence above the no-signal floor, got %.4f", conf)
	}
}

func TestScoreHeadlineBearish(t *testing.T) {
	score, _ := ScoreHeadline("Market crash: stocks plunge amid fraud investigation concerns")
	if score >= 0 {
		t.Errorf("expected negative score for bearish headline, got %.4f", score)
	}
}

func TestScoreHeadlineNeutral(t *testing.T) {
	score, conf := ScoreHeadline("Company announces new office location in Austin")
	if score != 0 {
		t.Errorf("expected zero score for neutral headline, got %.4f", score)
	}
	if conf != noSignalConfidence {
		t.Errorf("expected confidence %.2f, got %.4f", noSignalConfidence, conf)
	}
}

func TestScoreHeadlineWholeWords(t *testing.T) {
	// "execute" must not match "cut", "buyback" must not match "buy".
	score, _ := ScoreHeadline("Board to execute buyback program")
	if score != 0 {
		t.Errorf("expected no keyword hits, got %.4f", score)
	}
}

func TestScoreHeadlinePhrase(t *testing.T) {
	score, _ := ScoreHeadline("Index closes at an all-time high")
	if score != 1 {
		t.Errorf("expected 1.0 for a purely bullish phrase, got %.4f", score)
	}
}

func TestScoreArticle(t *testing.T) {
	a := models.NewsArticle{
		Title:       "Shares surge to record high",
		Summary:     "Analysts upgrade the stock",
		URL:         "https://example.com/a1",
		PublishedAt: now,
	}
	hs := ScoreArticle(a)
	if hs.Score <= 0 {
		t.Errorf("expected positive score, got %.4f", hs.Score)
	}
	if hs.Headline != a.Title || hs.URL != a.URL {
		t.Errorf("expected headline and url carried over, got %+v", hs)
	}
}

func TestAggregateDecay(t *testing.T) {
	scores := []models.HeadlineScore{
		{Score: 1, Confidence: 0.5, PublishedAt: now},
		{Score: -1, Confidence: 0.5, PublishedAt: now.Add(-24 * time.Hour)},
	}
	agg := Aggregate(scores, now)

	// Weights 0.5 and 0.25 after one half-life.
	if math.Abs(agg.Score-1.0/3) > 1e-9 {
		t.Errorf("expected score 0.3333, got %.6f", agg.Score)
	}
	if agg.Label != LabelBullish {
		t.Errorf("expected %s, got %s", LabelBullish, agg.Label)
	}
	if agg.ArticleCount != 2 || agg.Confidence != 0.5 {
		t.Errorf("unexpected aggregate %+v", agg)
	}
}

func TestAggregateFutureArticle(t *testing.T) {
	scores := []models.HeadlineScore{{Score: -0.2, Confidence: 0.4, PublishedAt: now.Add(time.Hour)}}
	agg := Aggregate(scores, now)
	if math.Abs(agg.Score+0.2) > 1e-12 {
		t.Errorf("expected -0.2, got %.6f", agg.Score)
	}
	if agg.Label != LabelSlightlyBearish {
		t.Errorf("expected %s, got %s", LabelSlightlyBearish, agg.Label)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil, now)
	if agg.Label != LabelNeutral || agg.ArticleCount != 0 {
		t.Errorf("expected neutral empty aggregate, got %+v", agg)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.5, LabelBullish},
		{0.2, LabelSlightlyBullish},
		{0.1, LabelNeutral},
		{0, LabelNeutral},
		{-0.2, LabelSlightlyBearish},
		{-0.31, LabelBearish},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	if Analyze(nil, now) != nil {
		t.Error("expected nil for no articles")
	}
	articles := []models.NewsArticle{
		{Title: "Stock surges on strong earnings beat", PublishedAt: now},
		{Title: "Positive growth outlook", PublishedAt: now.Add(-6 * time.Hour)},
	}
	res := Analyze(articles, now)
	if res == nil || res.ArticleCount != 2 {
		t.Fatalf("expected 2 scored articles, got %+v", res)
	}
	if res.Score <= 0 {
		t.Errorf("expected positive aggregate, got %.4f", res.Score)
	}
}
