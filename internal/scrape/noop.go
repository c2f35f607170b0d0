package scrape

import "context"

// NoopScraper is a placeholder for sources that are configured but not yet
// implemented. It collects nothing but still produces an audit record.
type NoopScraper struct {
	name string
}

// NewNoopScraper creates a no-op scraper with the given name.
func NewNoopScraper(name string) *NoopScraper {
	return &NoopScraper{name: name}
}

// Name implements Scraper.
func (s *NoopScraper) Name() string { return s.name }

// Scrape implements Scraper; it always collects zero articles.
func (s *NoopScraper) Scrape(ctx context.Context) (int, error) {
	return 0, nil
}
