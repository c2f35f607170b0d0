package database

import (
	"database/sql"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

func nowUTC() string {
	return time.Now().UTC().Format(timeLayout)
}

// InsertArticle inserts an article, deduplicating by URL.
// Returns the new ID, or 0 when the URL is already stored.
func (db *DB) InsertArticle(url, title, text, source string, publishedAt *time.Time) (int64, error) {
	var existing int64
	err := db.conn.QueryRow("SELECT id FROM articles WHERE url = ? LIMIT 1", url).Scan(&existing)
	if err == nil {
		return 0, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	// Build the insert from columns proven to exist so older on-disk
	// layouts keep working.
	cols := []string{"url", "title", "source", "created_at"}
	args := []any{url, title, source, nowUTC()}

	if db.hasColumn("articles", "text") {
		cols = append(cols, "text")
		args = append(args, text)
	}
	if db.hasColumn("articles", "processed") {
		cols = append(cols, "processed")
		args = append(args, 0)
	}
	if publishedAt != nil && db.hasColumn("articles", "published_at") {
		cols = append(cols, "published_at")
		args = append(args, publishedAt.UTC().Format(timeLayout))
	}

	query := "INSERT INTO articles (" + strings.Join(cols, ", ") + ") VALUES (?" +
		strings.Repeat(", ?", len(cols)-1) + ")"

	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetUnprocessedArticles returns up to limit articles not yet processed,
// oldest first. On a database whose articles table predates the processed
// column it repairs the column first; if that fails it degrades to
// returning whatever columns exist, with missing fields left nil.
func (db *DB) GetUnprocessedArticles(limit int) ([]Article, error) {
	if !db.ensureColumn("articles", "processed", "INTEGER DEFAULT 0") {
		return db.getArticlesDegraded(limit)
	}

	rows, err := db.conn.Query(
		`SELECT id, title, url, text, source, published_at, processed, processed_at, error, created_at
		FROM articles WHERE processed = 0 OR processed IS NULL
		ORDER BY created_at ASC, id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return db.getArticlesDegraded(limit)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// getArticlesDegraded selects only the columns proven to exist and maps
// them onto Article values with the rest defaulted.
func (db *DB) getArticlesDegraded(limit int) ([]Article, error) {
	available := []string{"id", "title", "url"}
	for _, c := range []string{"text", "source", "published_at", "created_at"} {
		if db.hasColumn("articles", c) {
			available = append(available, c)
		}
	}

	order := "id ASC"
	if db.hasColumn("articles", "created_at") {
		order = "created_at ASC, id ASC"
	}
	rows, err := db.conn.Query(
		"SELECT "+strings.Join(available, ", ")+" FROM articles ORDER BY "+order+" LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		dest := make([]any, len(available))
		var a Article
		for i, c := range available {
			switch c {
			case "id":
				dest[i] = &a.ID
			case "title":
				dest[i] = &a.Title
			case "url":
				dest[i] = &a.URL
			case "text":
				dest[i] = &a.Text
			case "source":
				dest[i] = &a.Source
			case "published_at":
				dest[i] = &a.PublishedAt
			case "created_at":
				dest[i] = &a.CreatedAt
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// MarkArticleProcessed sets processed=1 and stamps processed_at, optionally
// recording an error message. Returns false if the article does not exist.
// Processed never reverts; a later call may only rewrite the error field.
func (db *DB) MarkArticleProcessed(articleID int64, errMsg *string) (bool, error) {
	db.ensureColumn("articles", "processed", "INTEGER DEFAULT 0")
	db.ensureColumn("articles", "processed_at", "TEXT")

	var result sql.Result
	var err error
	if errMsg != nil {
		db.ensureColumn("articles", "error", "TEXT")
		result, err = db.conn.Exec(
			"UPDATE articles SET processed = 1, processed_at = ?, error = ? WHERE id = ?",
			nowUTC(), *errMsg, articleID,
		)
	} else {
		result, err = db.conn.Exec(
			"UPDATE articles SET processed = 1, processed_at = ? WHERE id = ?",
			nowUTC(), articleID,
		)
	}
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetArticleByID returns a single article, or nil if not found.
func (db *DB) GetArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(
		`SELECT id, title, url, text, source, published_at, processed, processed_at, error, created_at
		FROM articles WHERE id = ?`, articleID,
	)
	var a Article
	var processed sql.NullInt64
	err := row.Scan(&a.ID, &a.Title, &a.URL, &a.Text, &a.Source, &a.PublishedAt,
		&processed, &a.ProcessedAt, &a.Error, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Processed = processed.Int64 != 0
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		var processed sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Text, &a.Source, &a.PublishedAt,
			&processed, &a.ProcessedAt, &a.Error, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Processed = processed.Int64 != 0
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
