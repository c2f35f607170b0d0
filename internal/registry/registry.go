// Package registry maintains the deduplicated project registry: each
// extracted article either creates a project or appends a status update
// to an existing one.
package registry

import (
	"context"
	"fmt"
	"log"

	"civictrack/internal/database"
	"civictrack/internal/extract"
)

// Result holds the outcome of a batch processing run.
type Result struct {
	Processed     int
	ProjectsFound int
	Failed        int
}

// Registry matches extracted project data against stored projects.
type Registry struct {
	db        *database.DB
	extractor *extract.Extractor
}

// New creates a Registry.
func New(db *database.DB, extractor *extract.Extractor) *Registry {
	return &Registry{db: db, extractor: extractor}
}

// ProcessArticle extracts project data from one article and merges it into
// the registry. The article always ends up marked processed: with an error
// annotation when extraction or persistence fails, cleanly otherwise.
// Returns whether a project was found.
func (r *Registry) ProcessArticle(ctx context.Context, article database.Article) (bool, error) {
	data, err := r.extractor.Extract(ctx, article.BodyText(), article.URL)
	if err != nil {
		r.markWithError(article.ID, err.Error())
		return false, err
	}

	if data == nil {
		r.markWithError(article.ID, "No project data extracted")
		return false, nil
	}

	if err := r.merge(data); err != nil {
		r.markWithError(article.ID, err.Error())
		return false, err
	}

	if _, err := r.db.MarkArticleProcessed(article.ID, nil); err != nil {
		return false, err
	}
	return true, nil
}

// merge appends the extracted data to the first name-matching project, or
// creates a new project when no candidate exists. Matching is a
// case-insensitive substring check on name only; the first of up to five
// candidates wins.
func (r *Registry) merge(data *extract.ProjectData) error {
	status := data.Status
	if status == "" {
		status = "announced"
	}

	candidates, err := r.db.FindSimilarProjects(data.ProjectName, data.Location)
	if err != nil {
		return fmt.Errorf("finding similar projects: %w", err)
	}

	if len(candidates) > 0 {
		target := candidates[0]
		log.Printf("matched %q to existing project %d (%s)", data.ProjectName, target.ID, target.Name)
		_, err := r.db.InsertProjectUpdate(target.ID, status, data.SourceURL, "news", optional(data.Description))
		if err != nil {
			return fmt.Errorf("appending project update: %w", err)
		}
		return nil
	}

	project := &database.Project{
		Name:               data.ProjectName,
		Description:        optional(data.Description),
		URL:                optional(data.SourceURL),
		Location:           optional(data.Location),
		ProjectType:        optional(data.ProjectType),
		PromisedCompletion: optional(data.PromisedCompletion),
		Budget:             optional(data.Budget),
		Official:           optional(data.Official),
		Status:             &status,
		ConfidenceScore:    data.Confidence,
	}

	projectID, err := r.db.InsertProject(project)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	log.Printf("created project %d: %s", projectID, data.ProjectName)

	discovery := fmt.Sprintf("Initial discovery from %s", data.SourceURL)
	if _, err := r.db.InsertProjectUpdate(projectID, status, data.SourceURL, "news", &discovery); err != nil {
		return fmt.Errorf("recording discovery update: %w", err)
	}
	return nil
}

// ProcessUnprocessed pulls a bounded batch of unprocessed articles and
// processes each independently; one article's failure never blocks the
// rest. Repeated invocation works through a backlog.
func (r *Registry) ProcessUnprocessed(ctx context.Context, limit int) (*Result, error) {
	articles, err := r.db.GetUnprocessedArticles(limit)
	if err != nil {
		return nil, fmt.Errorf("getting unprocessed articles: %w", err)
	}

	result := &Result{}
	if len(articles) == 0 {
		log.Println("no unprocessed articles found")
		return result, nil
	}

	log.Printf("processing %d articles...", len(articles))
	for _, article := range articles {
		log.Printf("processing: %s", truncate(article.Title, 50))

		found, err := r.ProcessArticle(ctx, article)
		result.Processed++
		if found {
			result.ProjectsFound++
		}
		if err != nil {
			log.Printf("failed to process article %d: %v", article.ID, err)
			result.Failed++
		}
	}

	log.Printf("processing complete: %d processed, %d projects found, %d failed",
		result.Processed, result.ProjectsFound, result.Failed)
	return result, nil
}

func (r *Registry) markWithError(articleID int64, msg string) {
	if _, err := r.db.MarkArticleProcessed(articleID, &msg); err != nil {
		log.Printf("marking article %d processed failed: %v", articleID, err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
