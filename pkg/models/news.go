package models

import "time"

// NewsArticle represents a single news headline.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// HeadlineScore is the sentiment of one article.
type HeadlineScore struct {
	Headline    string    `json:"headline"`
	Score       float64   `json:"score"` // -1.0 (very bearish) to +1.0 (very bullish)
	Confidence  float64   `json:"confidence"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsSentiment is the time-weighted aggregate of headline scores.
// It is informational and does not feed the scoring engine.
type NewsSentiment struct {
	Score        float64         `json:"score"`
	Confidence   float64         `json:"confidence"`
	Label        string          `json:"label"` // "Bullish", "Bearish", "Neutral"
	ArticleCount int             `json:"article_count"`
	Headlines    []HeadlineScore `json:"headlines,omitempty"`
}
