package database

import "log"

// columnDef describes one column a table is expected to have.
type columnDef struct {
	Name string
	Def  string
}

// expectedColumns lists, per table, the columns added after the first on-disk
// layout shipped. Databases created under older layouts are repaired with
// additive ALTER TABLE statements; nothing is ever dropped or renamed.
var expectedColumns = map[string][]columnDef{
	"articles": {
		{"text", "TEXT"},
		{"processed", "INTEGER DEFAULT 0"},
		{"processed_at", "TEXT"},
		{"error", "TEXT"},
	},
	"projects": {
		{"location", "TEXT"},
		{"project_type", "TEXT"},
		{"promised_completion", "TEXT"},
		{"budget", "TEXT"},
		{"official", "TEXT"},
		{"status", "TEXT"},
		{"confidence_score", "REAL"},
	},
	"project_updates": {
		{"status", "TEXT"},
		{"source_url", "TEXT"},
		{"source_type", "TEXT"},
	},
}

// tableColumns probes the actual on-disk column set for a table.
func (db *DB) tableColumns(table string) (map[string]bool, error) {
	rows, err := db.conn.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// healSchema probes every table and adds any expected column that is
// missing. Probe or ALTER failures are swallowed: queries then run in
// degraded-column mode against whatever columns were proven to exist.
func (db *DB) healSchema() {
	for table, defs := range expectedColumns {
		cols, err := db.tableColumns(table)
		if err != nil {
			log.Printf("schema probe failed for %s: %v", table, err)
			db.cols[table] = map[string]bool{}
			continue
		}
		for _, cd := range defs {
			if cols[cd.Name] {
				continue
			}
			if _, err := db.conn.Exec("ALTER TABLE " + table + " ADD COLUMN " + cd.Name + " " + cd.Def); err != nil {
				log.Printf("adding column %s.%s failed: %v", table, cd.Name, err)
				continue
			}
			log.Printf("added missing column %s.%s", table, cd.Name)
			cols[cd.Name] = true
		}
		db.cols[table] = cols
	}
}

// hasColumn reports whether a column was proven to exist on disk.
func (db *DB) hasColumn(table, column string) bool {
	return db.cols[table][column]
}

// ensureColumn re-attempts adding a single column and refreshes the cache.
// Used before updates that strictly require the column.
func (db *DB) ensureColumn(table, column, def string) bool {
	if db.hasColumn(table, column) {
		return true
	}
	if _, err := db.conn.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + def); err != nil {
		log.Printf("adding column %s.%s failed: %v", table, column, err)
	}
	cols, err := db.tableColumns(table)
	if err != nil {
		return false
	}
	db.cols[table] = cols
	return cols[column]
}
