package database

// LogScraperRun appends an audit record for one scraper invocation.
func (db *DB) LogScraperRun(scraperName string, successCount, errorCount int) error {
	_, err := db.conn.Exec(
		`INSERT INTO scraper_runs (scraper_name, run_timestamp, success_count, error_count)
		VALUES (?, ?, ?, ?)`,
		scraperName, nowUTC(), successCount, errorCount,
	)
	return err
}

// GetRecentRuns returns the most recent scraper runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]ScraperRun, error) {
	rows, err := db.conn.Query(
		`SELECT id, scraper_name, run_timestamp, success_count, error_count
		FROM scraper_runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ScraperRun
	for rows.Next() {
		var r ScraperRun
		if err := rows.Scan(&r.ID, &r.ScraperName, &r.RunTimestamp, &r.SuccessCount, &r.ErrorCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
