package datasource

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/phuslu/log"

	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/pkg/models"
)

// DefaultNewsFeed is the per-symbol headline feed. %s is the escaped symbol.
const DefaultNewsFeed = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// DefaultNewsLimit caps the headlines returned per symbol.
const DefaultNewsLimit = 20

// News fetches per-symbol headlines from an RSS feed.
type News struct {
	feedURL string
	parser  *gofeed.Parser
	limiter *infra.Limiter
	cache   infra.Store
}

// NewNews creates a news source. An empty feedURL selects DefaultNewsFeed;
// nil limiter and cache disable those features.
func NewNews(feedURL string, limiter *infra.Limiter, cache infra.Store) *News {
	if feedURL == "" {
		feedURL = DefaultNewsFeed
	}
	if cache == nil {
		cache = infra.NewMemoryStore(infra.StoreOptions{})
	}
	return &News{
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		limiter: limiter,
		cache:   cache,
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "RSS News" }

// StockNews returns up to limit headlines for symbol, newest first.
func (n *News) StockNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	symbol = NormalizeSymbol(symbol)
	if limit <= 0 {
		limit = DefaultNewsLimit
	}

	cacheKey := fmt.Sprintf("news:%s:%d", symbol, limit)
	var cached []models.NewsArticle
	if err := infra.GetJSON(n.cache, cacheKey, &cached); err == nil {
		return cached, nil
	}

	articles, err := n.fetchRSS(ctx, symbol)
	if err != nil {
		return nil, err
	}
	sortArticlesByDate(articles)
	if len(articles) > limit {
		articles = articles[:limit]
	}

	if err := infra.SetJSON(n.cache, cacheKey, articles); err != nil {
		log.Warn().Str("component", "news").Err(err).Msg("cache write failed")
	}
	return articles, nil
}

// fetchRSS parses the symbol's feed and returns its articles.
func (n *News) fetchRSS(ctx context.Context, symbol string) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := n.feedURL
	if strings.Contains(feedURL, "%s") {
		feedURL = fmt.Sprintf(feedURL, url.QueryEscape(symbol))
	}
	feed, err := n.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS for %s: %w", symbol, err)
	}

	source := feed.Title
	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  source,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sortArticlesByDate sorts articles by published date (newest first).
func sortArticlesByDate(articles []models.NewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
