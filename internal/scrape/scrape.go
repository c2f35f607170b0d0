// Package scrape collects articles from configured sources. Scrapers are
// interchangeable implementations run sequentially by RunAll; every run is
// recorded in the scraper_runs audit table, whatever way it exits.
package scrape

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"civictrack/internal/database"
)

// Scraper is one article source. Scrape returns the number of articles
// collected and stored.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) (int, error)
}

// RunResult holds the outcome of one scraper's lifecycle.
type RunResult struct {
	Scraper   string
	Collected int
	Err       error
}

// RunAll runs each scraper to completion in order. A failure inside one
// scraper is recorded and the next scraper still runs.
func RunAll(ctx context.Context, db *database.DB, scrapers []Scraper) []RunResult {
	results := make([]RunResult, 0, len(scrapers))
	for _, s := range scrapers {
		result := runOne(ctx, db, s)
		if result.Err != nil {
			log.Printf("%s failed: %v", s.Name(), result.Err)
		} else {
			log.Printf("%s collected %d articles", s.Name(), result.Collected)
		}
		results = append(results, result)
	}
	return results
}

func runOne(ctx context.Context, db *database.DB, s Scraper) (result RunResult) {
	result.Scraper = s.Name()
	guard := StartRun(db, s.Name())

	defer func() {
		if p := recover(); p != nil {
			result.Err = fmt.Errorf("scraper panic: %v", p)
		}
		guard.End(result.Collected, result.Err)
	}()

	result.Collected, result.Err = s.Scrape(ctx)
	return result
}

// RunGuard brackets one scraper run. End writes the audit row; runOne
// defers it so the write happens on every exit path, unwind included.
type RunGuard struct {
	db      *database.DB
	name    string
	started time.Time
	done    bool
}

// StartRun begins tracking a scraper run.
func StartRun(db *database.DB, name string) *RunGuard {
	log.Printf("starting %s", name)
	return &RunGuard{db: db, name: name, started: time.Now()}
}

// End writes the scraper_runs audit record. Safe to call once; later calls
// are no-ops.
func (g *RunGuard) End(collected int, err error) {
	if g.done {
		return
	}
	g.done = true

	duration := time.Since(g.started)
	successCount, errorCount := collected, 0
	if err != nil {
		successCount, errorCount = 0, 1
	}

	log.Printf("%s finished: %d articles collected in %.2fs", g.name, collected, duration.Seconds())
	if logErr := g.db.LogScraperRun(g.name, successCount, errorCount); logErr != nil {
		log.Printf("recording run for %s failed: %v", g.name, logErr)
	}
}

// ValidateArticle checks article data before persisting: a real http(s)
// URL, a title of at least 10 characters, and at least 100 characters of
// body text.
func ValidateArticle(url, title, text string) bool {
	if !strings.HasPrefix(url, "http") {
		log.Printf("invalid URL: %s", url)
		return false
	}
	if len(title) < 10 {
		log.Printf("title too short: %s", title)
		return false
	}
	if len(text) < 100 {
		log.Printf("text too short for %s", url)
		return false
	}
	return true
}
