package db

import "fmt"

func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var version int
	err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	migrations := []func(*DB) error{
		migrateV1,
		migrateV2,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

func migrateV1(d *DB) error {
	statements := []string{
		`CREATE TABLE runs (
			run_id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			mods_dir TEXT NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE installs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			mod_name TEXT NOT NULL,
			version TEXT NOT NULL,
			url TEXT,
			checksum TEXT,
			status TEXT NOT NULL,
			error TEXT,
			installed_at DATETIME NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:30], err)
		}
	}

	return nil
}

func migrateV2(d *DB) error {
	// History is read newest-first, usually filtered by mod
	_, err := d.Exec(`CREATE INDEX idx_installs_mod_time ON installs(mod_name, installed_at)`)
	return err
}
