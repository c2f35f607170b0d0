package scrape

import (
	"bytes"
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"civictrack/internal/database"
	"civictrack/internal/fetch"
	"civictrack/internal/relevance"
)

// GovScraper collects press releases from an official city listing page.
type GovScraper struct {
	db           *database.DB
	fetcher      *fetch.Fetcher
	pressURL     string
	keywords     []string
	maxPerSource int
}

// NewGovScraper creates a government press-release scraper.
func NewGovScraper(db *database.DB, fetcher *fetch.Fetcher, pressURL string, keywords []string, maxPerSource int) *GovScraper {
	if maxPerSource <= 0 {
		maxPerSource = 20
	}
	return &GovScraper{
		db:           db,
		fetcher:      fetcher,
		pressURL:     pressURL,
		keywords:     keywords,
		maxPerSource: maxPerSource,
	}
}

// Name implements Scraper.
func (s *GovScraper) Name() string { return "GovScraper" }

// Scrape pulls the press-release listing, follows each keyword-matching
// item, and stores the full release text.
func (s *GovScraper) Scrape(ctx context.Context) (int, error) {
	if s.pressURL == "" {
		return 0, nil
	}

	log.Printf("scraping press releases from %s", s.pressURL)
	body, err := s.fetcher.Fetch(ctx, s.pressURL, nil)
	if err != nil {
		return 0, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	items := doc.Find("article")
	if items.Length() == 0 {
		items = doc.Find("div.news-item")
	}
	log.Printf("found %d press releases", items.Length())

	collected := 0
	items.EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= s.maxPerSource {
			return false
		}
		if s.scrapeItem(ctx, item) {
			collected++
		}
		return true
	})

	return collected, nil
}

// scrapeItem handles one listing entry; failures are logged and skipped.
func (s *GovScraper) scrapeItem(ctx context.Context, item *goquery.Selection) bool {
	title := strings.TrimSpace(item.Find("h2, h3, h4").First().Text())
	if title == "" {
		return false
	}

	if !relevance.ContainsKeywords(title, s.keywords) {
		return false
	}

	href, ok := item.Find("a").First().Attr("href")
	if !ok || href == "" {
		return false
	}
	pageURL := s.absoluteURL(href)

	var publishedAt *time.Time
	if dt, ok := item.Find("time").First().Attr("datetime"); ok {
		if t, err := dateparse.ParseAny(dt); err == nil {
			publishedAt = &t
		}
	}

	page, err := s.fetcher.Fetch(ctx, pageURL, nil)
	if err != nil {
		log.Printf("failed to fetch press release %s: %v", pageURL, err)
		return false
	}

	text := pressReleaseText(page)
	if text == "" {
		log.Printf("could not find content for %s", pageURL)
		return false
	}

	if !ValidateArticle(pageURL, title, text) {
		return false
	}

	id, err := s.db.InsertArticle(pageURL, title, text, "City Press Release", publishedAt)
	if err != nil {
		log.Printf("failed to store %s: %v", pageURL, err)
		return false
	}
	if id == 0 {
		return false
	}

	log.Printf("saved press release: %s", truncateTitle(title))
	return true
}

// pressReleaseText extracts the main content text of a press-release page,
// trying the usual content containers before falling back to main.
func pressReleaseText(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}

	selectors := []string{
		"article.content", "div.content",
		"article.main-content", "div.main-content",
		"article.article-body", "div.article-body",
		"main",
	}
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := strings.Join(strings.Fields(node.Text()), " "); text != "" {
			return text
		}
	}
	return ""
}

func (s *GovScraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(s.pressURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
