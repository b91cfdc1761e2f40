// Package sentiment scores news headlines with a keyword lexicon and
// aggregates them with time decay. The result is informational and does
// not feed the scoring engine.
package sentiment

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/seenimoa/stockscore/pkg/models"
)

// Labels reported by Aggregate.
const (
	LabelBullish         = "Bullish"
	LabelSlightlyBullish = "Slightly Bullish"
	LabelNeutral         = "Neutral"
	LabelSlightlyBearish = "Slightly Bearish"
	LabelBearish         = "Bearish"
)

// HalfLife is the age at which a headline's weight halves.
const HalfLife = 24 * time.Hour

const noSignalConfidence = 0.1

type keyword struct {
	term   string
	weight float64
}

// lexicon entries are sorted by term so that sums are order-stable.
type lexicon []keyword

func newLexicon(m map[string]float64) lexicon {
	l := make(lexicon, 0, len(m))
	for term, w := range m {
		l = append(l, keyword{term: term, weight: w})
	}
	sort.Slice(l, func(i, j int) bool { return l[i].term < l[j].term })
	return l
}

var bullish = newLexicon(map[string]float64{
	"bullish": 0.7, "rally": 0.6, "rallies": 0.6, "surge": 0.7, "surges": 0.7,
	"upbeat": 0.5, "positive": 0.4, "growth": 0.4, "upgrade": 0.6,
	"upgraded": 0.6, "outperform": 0.6, "buy": 0.5, "strong": 0.4,
	"recovery": 0.5, "breakout": 0.6, "record high": 0.7, "all-time high": 0.7,
	"beat": 0.5, "beats": 0.5, "exceeds": 0.5, "expansion": 0.4, "profit": 0.3,
	"dividend": 0.4, "accumulate": 0.5, "soars": 0.7, "gains": 0.4,
})

var bearish = newLexicon(map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "plunges": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "downgraded": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "declines": 0.5, "loss": 0.4,
	"selloff": 0.7, "fall": 0.4, "falls": 0.4, "correction": 0.5,
	"default": 0.7, "fraud": 0.8, "scam": 0.8, "investigation": 0.5,
	"cut": 0.3, "miss": 0.5, "misses": 0.5, "warning": 0.5, "concern": 0.3,
	"concerns": 0.3, "lawsuit": 0.5,
})

// normalize lowercases text and collapses everything but letters, digits
// and hyphens into single spaces, padded so that " term " matches whole
// words only.
func normalize(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	return " " + strings.Join(words, " ") + " "
}

func (l lexicon) match(text string) (sum float64, hits int) {
	for _, k := range l {
		if strings.Contains(text, " "+k.term+" ") {
			sum += k.weight
			hits++
		}
	}
	return sum, hits
}

// ScoreHeadline returns a score in [-1, 1] and a confidence in (0, 0.85].
func ScoreHeadline(headline string) (score, confidence float64) {
	text := normalize(headline)
	bull, nb := bullish.match(text)
	bear, ns := bearish.match(text)

	total := bull + bear
	if total == 0 {
		return 0, noSignalConfidence
	}
	score = (bull - bear) / total
	confidence = math.Min(float64(nb+ns)*0.15+0.2, 0.85)
	return score, confidence
}

// ScoreArticle scores the title and summary of a.
func ScoreArticle(a models.NewsArticle) models.HeadlineScore {
	text := a.Title
	if a.Summary != "" {
		text += " " + a.Summary
	}
	score, conf := ScoreHeadline(text)
	return models.HeadlineScore{
		Headline:    a.Title,
		Score:       score,
		Confidence:  conf,
		URL:         a.URL,
		PublishedAt: a.PublishedAt,
	}
}

// Aggregate combines headline scores weighted by confidence and by an
// exponential decay on age relative to now.
func Aggregate(scores []models.HeadlineScore, now time.Time) models.NewsSentiment {
	if len(scores) == 0 {
		return models.NewsSentiment{Label: LabelNeutral, Headlines: []models.HeadlineScore{}}
	}

	var weighted, totalWeight, confSum float64
	for _, s := range scores {
		age := now.Sub(s.PublishedAt)
		if age < 0 {
			age = 0
		}
		w := math.Exp(-math.Ln2*age.Hours()/HalfLife.Hours()) * s.Confidence
		weighted += s.Score * w
		totalWeight += w
		confSum += s.Confidence
	}

	avg := 0.0
	if totalWeight > 0 {
		avg = weighted / totalWeight
	}
	return models.NewsSentiment{
		Score:        avg,
		Confidence:   confSum / float64(len(scores)),
		Label:        Label(avg),
		ArticleCount: len(scores),
		Headlines:    scores,
	}
}

// Label buckets an aggregate score.
func Label(score float64) string {
	switch {
	case score > 0.3:
		return LabelBullish
	case score > 0.1:
		return LabelSlightlyBullish
	case score < -0.3:
		return LabelBearish
	case score < -0.1:
		return LabelSlightlyBearish
	default:
		return LabelNeutral
	}
}

// Analyze scores articles and aggregates them. It returns nil when there
// is nothing to score.
func Analyze(articles []models.NewsArticle, now time.Time) *models.NewsSentiment {
	if len(articles) == 0 {
		return nil
	}
	scores := make([]models.HeadlineScore, 0, len(articles))
	for _, a := range articles {
		scores = append(scores, ScoreArticle(a))
	}
	agg := Aggregate(scores, now)
	return &agg
}
