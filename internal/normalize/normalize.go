// Package normalize converts raw pages into canonical article payloads.
// A structured readability pass runs first; when it yields little or no
// body text, a generic paragraph scrape recovers a best-effort result so
// an article is only dropped when no extractable text exists at all.
package normalize

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"civictrack/internal/fetch"
)

// minContentLength is the body length below which the readability result
// is considered too thin and the paragraph fallback runs.
const minContentLength = 200

// ErrNoContent is returned when both extraction strategies yield neither
// a title nor any body text.
var ErrNoContent = errors.New("no title or text extracted")

// Article is the canonical payload produced from one page.
type Article struct {
	URL         string
	Title       string
	Text        string
	PublishedAt *time.Time
	Authors     []string
}

// Normalizer fetches pages and extracts article payloads.
type Normalizer struct {
	fetcher *fetch.Fetcher
}

// New creates a Normalizer on top of the given fetcher.
func New(fetcher *fetch.Fetcher) *Normalizer {
	return &Normalizer{fetcher: fetcher}
}

// Normalize fetches a URL and extracts a canonical article from it.
func (n *Normalizer) Normalize(ctx context.Context, pageURL string) (*Article, error) {
	body, err := n.fetcher.Fetch(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	return n.FromHTML(pageURL, body)
}

// FromHTML extracts a canonical article from already-fetched HTML.
func (n *Normalizer) FromHTML(pageURL string, body []byte) (*Article, error) {
	article := &Article{URL: pageURL}

	parsedURL, _ := url.Parse(pageURL)
	if result, err := readability.FromReader(bytes.NewReader(body), parsedURL); err == nil {
		article.Title = strings.TrimSpace(result.Title)
		article.Text = strings.TrimSpace(result.TextContent)
		if result.Byline != "" {
			article.Authors = []string{result.Byline}
		}
	} else {
		log.Printf("readability parse failed for %s: %v", pageURL, err)
	}

	if len(article.Text) < minContentLength {
		n.scrapeFallback(article, body)
	}

	if article.Title == "" && article.Text == "" {
		return nil, ErrNoContent
	}
	return article, nil
}

// scrapeFallback concatenates paragraph-level text blocks and recovers a
// title and publish date from common markup conventions.
func (n *Normalizer) scrapeFallback(article *Article, body []byte) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Printf("fallback parse failed for %s: %v", article.URL, err)
		return
	}

	if article.Title == "" {
		article.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		article.Text = strings.Join(paragraphs, "\n\n")
	}

	if article.PublishedAt == nil {
		article.PublishedAt = metaPublishDate(doc)
	}
}

// metaPublishDate checks the usual meta-tag conventions for a publish date.
func metaPublishDate(doc *goquery.Document) *time.Time {
	selectors := []string{
		`meta[property="article:published_time"]`,
		`meta[name="pubdate"]`,
	}
	for _, sel := range selectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok || content == "" {
			continue
		}
		if t, err := dateparse.ParseAny(content); err == nil {
			return &t
		}
	}
	return nil
}
