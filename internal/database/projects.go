package database

import (
	"database/sql"
	"fmt"
)

// InsertProject creates a new project row and returns its ID.
func (db *DB) InsertProject(p *Project) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO projects (name, description, url, location, project_type,
			promised_completion, budget, official, status, confidence_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.URL, p.Location, p.ProjectType,
		p.PromisedCompletion, p.Budget, p.Official, p.Status, p.ConfidenceScore, nowUTC(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FindSimilarProjects returns up to 5 projects whose name contains the given
// name as a case-insensitive substring, in storage order. The location
// argument is accepted but not used for disambiguation; the first candidate
// wins regardless, which can merge distinct projects that share a name word.
func (db *DB) FindSimilarProjects(name, location string) ([]Project, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, description, url, location, project_type,
			promised_completion, budget, official, status, confidence_score, created_at
		FROM projects WHERE name LIKE ? ORDER BY id ASC LIMIT 5`,
		"%"+name+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

// GetProjectByID returns a single project, or nil if not found.
func (db *DB) GetProjectByID(projectID int64) (*Project, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, description, url, location, project_type,
			promised_completion, budget, official, status, confidence_score, created_at
		FROM projects WHERE id = ?`, projectID,
	)
	var p Project
	var score sql.NullFloat64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.URL, &p.Location, &p.ProjectType,
		&p.PromisedCompletion, &p.Budget, &p.Official, &p.Status, &score, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ConfidenceScore = score.Float64
	return &p, nil
}

// InsertProjectUpdate appends a status observation to a project.
func (db *DB) InsertProjectUpdate(projectID int64, status, sourceURL, sourceType string, notes *string) (int64, error) {
	updateText := ""
	if notes != nil {
		updateText = *notes
	}
	result, err := db.conn.Exec(
		`INSERT INTO project_updates (project_id, update_text, notes, update_date, status, source_url, source_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, updateText, notes, nowUTC(), status, sourceURL, sourceType, nowUTC(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetProjectUpdates returns a project's updates ordered by update_date.
func (db *DB) GetProjectUpdates(projectID int64) ([]ProjectUpdate, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, update_text, notes, update_date, status, source_url, source_type, created_at
		FROM project_updates WHERE project_id = ? ORDER BY update_date ASC, id ASC`, projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []ProjectUpdate
	for rows.Next() {
		var u ProjectUpdate
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.UpdateText, &u.Notes, &u.UpdateDate,
			&u.Status, &u.SourceURL, &u.SourceType, &u.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// GetAllProjects returns the consumer-facing project views, with first_seen
// and last_updated derived from each project's update history.
func (db *DB) GetAllProjects(filters *ProjectFilters) ([]ProjectView, error) {
	query := `SELECT id, name, description, location, project_type,
		promised_completion, budget, official, status, confidence_score, created_at
		FROM projects`
	var args []any
	var where []string
	if filters != nil && filters.ProjectType != "" {
		where = append(where, "project_type = ?")
		args = append(args, filters.ProjectType)
	}
	if filters != nil && filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filters.Status)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY id ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []ProjectView
	for rows.Next() {
		var v ProjectView
		var score sql.NullFloat64
		var createdAt sql.NullString
		if err := rows.Scan(&v.ID, &v.ProjectName, &v.Description, &v.Location, &v.ProjectType,
			&v.PromisedDate, &v.Budget, &v.Official, &v.Status, &score, &createdAt); err != nil {
			return nil, err
		}
		v.ConfidenceScore = score.Float64
		v.FirstSeen = createdAt.String
		v.LastUpdated = createdAt.String
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range views {
		var first, last sql.NullString
		err := db.conn.QueryRow(
			"SELECT MIN(update_date), MAX(update_date) FROM project_updates WHERE project_id = ?",
			views[i].ID,
		).Scan(&first, &last)
		if err != nil {
			continue
		}
		if first.Valid {
			views[i].FirstSeen = first.String
		}
		if last.Valid {
			views[i].LastUpdated = last.String
		}
	}

	return views, nil
}

// GetStats returns aggregate registry statistics.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{ProjectsByStatus: make(map[string]int)}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM articles").Scan(&stats.TotalArticles); err != nil {
		return nil, fmt.Errorf("counting articles: %w", err)
	}

	if db.hasColumn("articles", "processed") {
		if err := db.conn.QueryRow(
			"SELECT COUNT(*) FROM articles WHERE processed = 1",
		).Scan(&stats.ProcessedArticles); err != nil {
			return nil, fmt.Errorf("counting processed: %w", err)
		}
	}
	stats.UnprocessedArticles = stats.TotalArticles - stats.ProcessedArticles

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM projects").Scan(&stats.TotalProjects); err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}

	if db.hasColumn("projects", "status") {
		rows, err := db.conn.Query("SELECT status, COUNT(*) FROM projects GROUP BY status")
		if err != nil {
			return nil, fmt.Errorf("grouping by status: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var status sql.NullString
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				return nil, err
			}
			key := status.String
			if key == "" {
				key = "unknown"
			}
			stats.ProjectsByStatus[key] = count
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func scanProjects(rows *sql.Rows) ([]Project, error) {
	var projects []Project
	for rows.Next() {
		var p Project
		var score sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.URL, &p.Location, &p.ProjectType,
			&p.PromisedCompletion, &p.Budget, &p.Official, &p.Status, &score, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ConfidenceScore = score.Float64
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
