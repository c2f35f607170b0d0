package registry

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"civictrack/internal/database"
	"civictrack/internal/extract"
)

// queueProvider replays canned responses in order, one per Generate call.
type queueProvider struct {
	responses []string
	calls     int
}

func (q *queueProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	if q.calls >= len(q.responses) {
		return `{"project_name": null}`, nil
	}
	resp := q.responses[q.calls]
	q.calls++
	return resp, nil
}

func (q *queueProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRegistry(db *database.DB, responses ...string) *Registry {
	provider := &queueProvider{responses: responses}
	return New(db, extract.New(provider, "San Jose", 2048))
}

func insertTestArticle(t *testing.T, db *database.DB, url string) int64 {
	t.Helper()
	id, err := db.InsertArticle(url, "Council Approves Project", "A long enough article body about a city project.", "Test", nil)
	if err != nil || id == 0 {
		t.Fatalf("inserting article: id=%d err=%v", id, err)
	}
	return id
}

func TestProcessArticleCreatesProject(t *testing.T) {
	db := openTestDB(t)
	reg := newTestRegistry(db, `{
		"project_name": "Downtown Library Renovation",
		"location": "Downtown",
		"project_type": "infrastructure",
		"status": "announced",
		"description": "Library renovation downtown."
	}`)
	id := insertTestArticle(t, db, "https://example.com/library")

	article, _ := db.GetArticleByID(id)
	found, err := reg.ProcessArticle(context.Background(), *article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Error("expected a project to be found")
	}

	views, _ := db.GetAllProjects(nil)
	if len(views) != 1 {
		t.Fatalf("expected 1 project, got %d", len(views))
	}
	if views[0].ProjectName != "Downtown Library Renovation" {
		t.Errorf("unexpected project name: %q", views[0].ProjectName)
	}

	// A fresh project records a discovery update.
	updates, _ := db.GetProjectUpdates(views[0].ID)
	if len(updates) != 1 {
		t.Fatalf("expected 1 discovery update, got %d", len(updates))
	}
	if updates[0].Notes == nil || !strings.Contains(*updates[0].Notes, "Initial discovery") {
		t.Error("expected initial discovery note")
	}

	article, _ = db.GetArticleByID(id)
	if !article.Processed || article.Error != nil {
		t.Error("expected article marked processed cleanly")
	}
}

func TestProcessArticleMergesIntoExisting(t *testing.T) {
	db := openTestDB(t)
	reg := newTestRegistry(db,
		`{"project_name": "Downtown Library Renovation", "status": "announced", "description": "First report."}`,
		`{"project_name": "library renovation", "status": "in_progress", "description": "Work has started."}`,
	)

	a1 := insertTestArticle(t, db, "https://example.com/1")
	a2 := insertTestArticle(t, db, "https://example.com/2")

	art1, _ := db.GetArticleByID(a1)
	if _, err := reg.ProcessArticle(context.Background(), *art1); err != nil {
		t.Fatalf("first article: %v", err)
	}
	art2, _ := db.GetArticleByID(a2)
	if _, err := reg.ProcessArticle(context.Background(), *art2); err != nil {
		t.Fatalf("second article: %v", err)
	}

	// Case-insensitive substring name match appends, never duplicates.
	views, _ := db.GetAllProjects(nil)
	if len(views) != 1 {
		t.Fatalf("expected a single merged project, got %d", len(views))
	}

	updates, _ := db.GetProjectUpdates(views[0].ID)
	if len(updates) != 2 {
		t.Fatalf("expected discovery plus one merged update, got %d", len(updates))
	}
	if updates[1].Status == nil || *updates[1].Status != "in_progress" {
		t.Errorf("expected merged update status in_progress, got %v", updates[1].Status)
	}
}

func TestProcessArticleNoProject(t *testing.T) {
	db := openTestDB(t)
	reg := newTestRegistry(db, `{"project_name": null}`)
	id := insertTestArticle(t, db, "https://example.com/weather")

	article, _ := db.GetArticleByID(id)
	found, err := reg.ProcessArticle(context.Background(), *article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected no project found")
	}

	article, _ = db.GetArticleByID(id)
	if !article.Processed {
		t.Error("expected article marked processed")
	}
	if article.Error == nil || *article.Error != "No project data extracted" {
		t.Errorf("expected no-project annotation, got %v", article.Error)
	}
}

func TestProcessArticleBadResponse(t *testing.T) {
	db := openTestDB(t)
	reg := newTestRegistry(db, "this is not json at all")
	id := insertTestArticle(t, db, "https://example.com/bad")

	article, _ := db.GetArticleByID(id)
	found, err := reg.ProcessArticle(context.Background(), *article)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if found {
		t.Error("expected no project found")
	}

	// Even a failed article is marked processed so it is never retried.
	article, _ = db.GetArticleByID(id)
	if !article.Processed {
		t.Error("expected article marked processed despite failure")
	}
	if article.Error == nil {
		t.Error("expected error annotation")
	}
}

func TestProcessUnprocessedBatchIndependence(t *testing.T) {
	db := openTestDB(t)
	reg := newTestRegistry(db,
		`{"project_name": "Project One", "status": "announced"}`,
		"garbled output",
		`{"project_name": "Project Three", "status": "approved"}`,
	)

	insertTestArticle(t, db, "https://example.com/1")
	bad := insertTestArticle(t, db, "https://example.com/2")
	insertTestArticle(t, db, "https://example.com/3")

	result, err := reg.ProcessUnprocessed(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("expected all 3 processed, got %d", result.Processed)
	}
	if result.ProjectsFound != 2 {
		t.Errorf("expected 2 projects found, got %d", result.ProjectsFound)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}

	views, _ := db.GetAllProjects(nil)
	if len(views) != 2 {
		t.Errorf("expected 2 projects, got %d", len(views))
	}

	article, _ := db.GetArticleByID(bad)
	if article.Error == nil {
		t.Error("expected failed article annotated")
	}

	// The backlog is drained: a second pass finds nothing.
	result, err = reg.ProcessUnprocessed(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("expected empty second batch, got %d", result.Processed)
	}
}

func TestProcessUnprocessedDefaultStatus(t *testing.T) {
	db := openTestDB(t)
	reg := newTestRegistry(db, `{"project_name": "Statusless Project"}`)
	insertTestArticle(t, db, "https://example.com/x")

	if _, err := reg.ProcessUnprocessed(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views, _ := db.GetAllProjects(nil)
	if len(views) != 1 {
		t.Fatalf("expected 1 project, got %d", len(views))
	}
	if views[0].Status == nil || *views[0].Status != "announced" {
		t.Errorf("expected default status announced, got %v", views[0].Status)
	}
}
