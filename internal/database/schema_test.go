package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// openLegacyArticlesDB creates a database whose articles table predates the
// text/processed/processed_at/error columns.
func openLegacyArticlesDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	_, err = raw.Exec(`CREATE TABLE articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT UNIQUE NOT NULL,
		source TEXT,
		published_at TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	)`)
	if err != nil {
		t.Fatalf("create legacy articles: %v", err)
	}
	_, err = raw.Exec(`INSERT INTO articles (title, url) VALUES
		('Old Article One', 'https://old.example.com/1'),
		('Old Article Two', 'https://old.example.com/2')`)
	if err != nil {
		t.Fatalf("seed legacy rows: %v", err)
	}
	raw.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open on legacy db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSelfHealAddsMissingColumns(t *testing.T) {
	db := openLegacyArticlesDB(t)

	cols, err := db.tableColumns("articles")
	if err != nil {
		t.Fatalf("tableColumns: %v", err)
	}
	for _, want := range []string{"text", "processed", "processed_at", "error"} {
		if !cols[want] {
			t.Errorf("expected column %q to be added", want)
		}
	}
}

func TestSelfHealIsAdditive(t *testing.T) {
	db := openLegacyArticlesDB(t)

	// Pre-existing rows and columns must survive the repair untouched.
	articles, err := db.GetUnprocessedArticles(10)
	if err != nil {
		t.Fatalf("GetUnprocessedArticles: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 legacy rows, got %d", len(articles))
	}
	if articles[0].Title != "Old Article One" {
		t.Errorf("unexpected first row: %q", articles[0].Title)
	}
	if articles[0].BodyText() != "" {
		t.Errorf("expected empty text default, got %q", articles[0].BodyText())
	}
}

func TestGetUnprocessedAfterHeal(t *testing.T) {
	db := openLegacyArticlesDB(t)

	articles, err := db.GetUnprocessedArticles(10)
	if err != nil {
		t.Fatalf("GetUnprocessedArticles: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 unprocessed, got %d", len(articles))
	}

	if _, err := db.MarkArticleProcessed(articles[0].ID, nil); err != nil {
		t.Fatalf("MarkArticleProcessed: %v", err)
	}

	articles, err = db.GetUnprocessedArticles(10)
	if err != nil {
		t.Fatalf("GetUnprocessedArticles after mark: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("expected 1 unprocessed after marking, got %d", len(articles))
	}
}

func TestInsertArticleOnHealedDB(t *testing.T) {
	db := openLegacyArticlesDB(t)

	id, err := db.InsertArticle("https://new.example.com", "Fresh Article", "Some body text", "Source", nil)
	if err != nil {
		t.Fatalf("InsertArticle: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	article, err := db.GetArticleByID(id)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if article.BodyText() != "Some body text" {
		t.Errorf("expected text stored after heal, got %q", article.BodyText())
	}
}

func TestInsertArticleWithDateOnTableWithoutPublishedAt(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nodate.db")

	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	_, err = raw.Exec(`CREATE TABLE articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT UNIQUE NOT NULL,
		source TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	raw.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	// The publish date is silently dropped rather than failing the insert.
	published := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	id, err := db.InsertArticle("https://example.com/dated", "A Dated Article", "body", "Source", &published)
	if err != nil {
		t.Fatalf("InsertArticle on table without published_at: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	var title string
	if err := db.conn.QueryRow("SELECT title FROM articles WHERE id = ?", id).Scan(&title); err != nil {
		t.Fatalf("reading row back: %v", err)
	}
	if title != "A Dated Article" {
		t.Errorf("unexpected title: %q", title)
	}
}

func TestDegradedReadsOrderByCreatedAt(t *testing.T) {
	db := openTestDB(t)

	// Insertion order deliberately disagrees with creation time.
	_, err := db.conn.Exec(`INSERT INTO articles (title, url, created_at) VALUES
		('Newer', 'https://a.com/1', '2026-06-02 10:00:00'),
		('Older', 'https://a.com/2', '2026-06-01 10:00:00')`)
	if err != nil {
		t.Fatalf("seeding rows: %v", err)
	}

	articles, err := db.getArticlesDegraded(10)
	if err != nil {
		t.Fatalf("getArticlesDegraded: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(articles))
	}
	if articles[0].Title != "Older" {
		t.Errorf("expected oldest-created first, got %q", articles[0].Title)
	}
}

func TestEnsureColumnRefreshesCache(t *testing.T) {
	db := openTestDB(t)

	// Simulate a stale cache entry claiming the column is missing.
	delete(db.cols["articles"], "processed")
	if db.hasColumn("articles", "processed") {
		t.Fatal("cache should report column missing")
	}

	if !db.ensureColumn("articles", "processed", "INTEGER DEFAULT 0") {
		t.Error("expected ensureColumn to rediscover the existing column")
	}
	if !db.hasColumn("articles", "processed") {
		t.Error("expected cache refresh")
	}
}
