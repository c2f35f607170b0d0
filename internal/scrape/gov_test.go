package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"civictrack/internal/fetch"
)

func testFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{
		Timeout:     2 * time.Second,
		Attempts:    1,
		BackoffBase: time.Millisecond,
		BackoffMax:  time.Millisecond,
	})
}

func pressListingHTML(items ...string) string {
	return "<html><body>" + strings.Join(items, "\n") + "</body></html>"
}

func pressItemHTML(title, href, datetime string) string {
	timeTag := ""
	if datetime != "" {
		timeTag = fmt.Sprintf(`<time datetime="%s">%s</time>`, datetime, datetime)
	}
	return fmt.Sprintf(`<article><h3>%s</h3>%s<a href="%s">Read more</a></article>`, title, timeTag, href)
}

func pressPageHTML(text string) string {
	return fmt.Sprintf(`<html><body><div class="content"><p>%s</p></div></body></html>`, text)
}

func TestGovScraperCollectsMatchingReleases(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pressListingHTML(
			pressItemHTML("City Breaks Ground on Housing Project", "/news/housing", "2026-04-01"),
			pressItemHTML("Annual Arts Festival Returns Downtown", "/news/festival", ""),
		))
	})
	releaseText := strings.Repeat("The project will deliver 200 affordable units by 2028. ", 5)
	mux.HandleFunc("/news/housing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pressPageHTML(releaseText))
	})

	db := openTestDB(t)
	scraper := NewGovScraper(db, testFetcher(), srv.URL+"/news", []string{"housing", "project"}, 20)

	collected, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collected != 1 {
		t.Errorf("expected 1 release collected, got %d", collected)
	}

	articles, _ := db.GetUnprocessedArticles(10)
	if len(articles) != 1 {
		t.Fatalf("expected 1 stored release, got %d", len(articles))
	}
	a := articles[0]
	if a.Title != "City Breaks Ground on Housing Project" {
		t.Errorf("unexpected title: %q", a.Title)
	}
	if a.Source == nil || *a.Source != "City Press Release" {
		t.Errorf("unexpected source: %v", a.Source)
	}
	if !strings.HasPrefix(a.URL, srv.URL) {
		t.Errorf("expected relative href resolved against listing URL, got %q", a.URL)
	}
	if a.PublishedAt == nil || !strings.HasPrefix(*a.PublishedAt, "2026-04-01") {
		t.Errorf("expected publish date from time tag, got %v", a.PublishedAt)
	}
}

func TestGovScraperSkipsNonMatchingTitles(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var detailFetched bool
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pressListingHTML(
			pressItemHTML("Library Hours Change for Summer", "/news/hours", ""),
		))
	})
	mux.HandleFunc("/news/hours", func(w http.ResponseWriter, r *http.Request) {
		detailFetched = true
		fmt.Fprint(w, pressPageHTML("irrelevant"))
	})

	db := openTestDB(t)
	scraper := NewGovScraper(db, testFetcher(), srv.URL+"/news", []string{"housing", "transit"}, 20)

	collected, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collected != 0 {
		t.Errorf("expected nothing collected, got %d", collected)
	}
	if detailFetched {
		t.Error("expected non-matching item's detail page to be skipped entirely")
	}
}

func TestGovScraperDivNewsItemFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="news-item">
<h2>Transit Corridor Project Funded</h2>
<a href="/news/transit">More</a></div></body></html>`)
	})
	mux.HandleFunc("/news/transit", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pressPageHTML(strings.Repeat("Funding secured for the corridor expansion. ", 5)))
	})

	db := openTestDB(t)
	scraper := NewGovScraper(db, testFetcher(), srv.URL+"/news", []string{"transit"}, 20)

	collected, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collected != 1 {
		t.Errorf("expected fallback selector to find the item, got %d", collected)
	}
}

func TestGovScraperEmptyPressURL(t *testing.T) {
	db := openTestDB(t)
	scraper := NewGovScraper(db, testFetcher(), "", []string{"housing"}, 20)

	collected, err := scraper.Scrape(context.Background())
	if collected != 0 || err != nil {
		t.Errorf("expected (0, nil) with no press URL, got (%d, %v)", collected, err)
	}
}

func TestGovScraperListingFetchFailure(t *testing.T) {
	db := openTestDB(t)
	scraper := NewGovScraper(db, testFetcher(), "http://127.0.0.1:1/news", []string{"housing"}, 20)

	_, err := scraper.Scrape(context.Background())
	if err == nil {
		t.Error("expected error when the listing page is unreachable")
	}
}

func TestPressReleaseTextMainFallback(t *testing.T) {
	page := []byte(`<html><body><main><h1>Title</h1>
<p>Paragraph one.</p>
<p>Paragraph   two with    extra whitespace.</p></main></body></html>`)

	text := pressReleaseText(page)
	if !strings.Contains(text, "Paragraph one.") {
		t.Errorf("expected main content extracted, got %q", text)
	}
	if strings.Contains(text, "  ") {
		t.Errorf("expected whitespace normalized, got %q", text)
	}
}
