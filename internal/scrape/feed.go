package scrape

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"civictrack/internal/config"
	"civictrack/internal/database"
	"civictrack/internal/normalize"
	"civictrack/internal/relevance"
)

// FeedScraper collects articles from RSS/Atom feeds, normalizing each
// linked page and keeping only relevant entries.
type FeedScraper struct {
	db           *database.DB
	normalizer   *normalize.Normalizer
	filter       *relevance.Filter
	feeds        []config.Feed
	maxPerSource int
	parser       *gofeed.Parser
}

// NewFeedScraper creates a feed scraper.
func NewFeedScraper(db *database.DB, normalizer *normalize.Normalizer, filter *relevance.Filter, feeds []config.Feed, maxPerSource int) *FeedScraper {
	if maxPerSource <= 0 {
		maxPerSource = 20
	}
	return &FeedScraper{
		db:           db,
		normalizer:   normalizer,
		filter:       filter,
		feeds:        feeds,
		maxPerSource: maxPerSource,
		parser:       gofeed.NewParser(),
	}
}

// Name implements Scraper.
func (s *FeedScraper) Name() string { return "NewsScraper" }

// Scrape walks all configured feeds. A feed that fails to parse is logged
// and skipped; the remaining feeds still run.
func (s *FeedScraper) Scrape(ctx context.Context) (int, error) {
	total := 0
	for _, feed := range s.feeds {
		name := feed.Name
		if name == "" {
			name = sourceNameFromURL(feed.URL)
		}
		total += s.scrapeFeed(ctx, feed.URL, name)
	}
	return total, nil
}

func (s *FeedScraper) scrapeFeed(ctx context.Context, feedURL, sourceName string) int {
	log.Printf("scraping feed: %s", sourceName)

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		log.Printf("failed to parse feed %s: %v", feedURL, err)
		return 0
	}

	items := feed.Items
	if len(items) > s.maxPerSource {
		items = items[:s.maxPerSource]
	}
	log.Printf("found %d entries in %s", len(items), sourceName)

	collected := 0
	for _, item := range items {
		if item.Link == "" {
			continue
		}

		article, err := s.normalizer.Normalize(ctx, item.Link)
		if err != nil {
			log.Printf("skipping %s: %v", item.Link, err)
			continue
		}

		if !s.filter.IsRelevant(article.Title, article.Text) {
			continue
		}
		if !ValidateArticle(article.URL, article.Title, article.Text) {
			continue
		}

		publishedAt := article.PublishedAt
		if publishedAt == nil && item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed
		}

		id, err := s.db.InsertArticle(article.URL, article.Title, article.Text, sourceName, publishedAt)
		if err != nil {
			log.Printf("failed to store %s: %v", article.URL, err)
			continue
		}
		if id > 0 {
			collected++
			log.Printf("saved: %s", truncateTitle(article.Title))
		}
	}

	log.Printf("collected %d articles from %s", collected, sourceName)
	return collected
}

func truncateTitle(title string) string {
	if len(title) > 60 {
		return title[:60] + "..."
	}
	return title
}

// sourceNameFromURL derives a readable source label from a feed URL host.
func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "feeds.", "rss."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	if host == "" {
		return feedURL
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
