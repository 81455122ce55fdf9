package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DonovanMods/everest-mod-updater/internal/domain"

	"github.com/google/uuid"
)

// StartRun registers one update/download invocation and returns its id
func (d *DB) StartRun(command, modsDir string) (string, error) {
	runID := uuid.NewString()
	_, err := d.Exec(`INSERT INTO runs (run_id, command, mods_dir) VALUES (?, ?, ?)`, runID, command, modsDir)
	if err != nil {
		return "", fmt.Errorf("starting run: %w", err)
	}
	return runID, nil
}

// RecordInstall appends an install attempt to the journal
func (d *DB) RecordInstall(rec domain.InstallRecord) error {
	if rec.InstalledAt.IsZero() {
		rec.InstalledAt = time.Now()
	}

	_, err := d.Exec(`
		INSERT INTO installs (run_id, mod_name, version, url, checksum, status, error, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.ModName, rec.Version, rec.URL, rec.Checksum, string(rec.Status), rec.Error, rec.InstalledAt.UTC())
	if err != nil {
		return fmt.Errorf("recording install of %s: %w", rec.ModName, err)
	}
	return nil
}

// ListInstalls returns journal entries newest first. An empty modName
// returns every mod; limit <= 0 means no limit.
func (d *DB) ListInstalls(modName string, limit int) ([]domain.InstallRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := d.Query(`
		SELECT run_id, mod_name, version, COALESCE(url, ''), COALESCE(checksum, ''), status, COALESCE(error, ''), installed_at
		FROM installs
		WHERE ? = '' OR mod_name = ?
		ORDER BY installed_at DESC, id DESC
		LIMIT ?
	`, modName, modName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying installs: %w", err)
	}
	defer rows.Close()

	var records []domain.InstallRecord
	for rows.Next() {
		var rec domain.InstallRecord
		var status string
		if err := rows.Scan(&rec.RunID, &rec.ModName, &rec.Version, &rec.URL, &rec.Checksum, &status, &rec.Error, &rec.InstalledAt); err != nil {
			return nil, fmt.Errorf("scanning install: %w", err)
		}
		rec.Status = domain.InstallStatus(status)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LastInstall returns the most recent successful install of a mod
func (d *DB) LastInstall(modName string) (*domain.InstallRecord, error) {
	var rec domain.InstallRecord
	var status string
	err := d.QueryRow(`
		SELECT run_id, mod_name, version, COALESCE(url, ''), COALESCE(checksum, ''), status, COALESCE(error, ''), installed_at
		FROM installs
		WHERE mod_name = ? AND status = ?
		ORDER BY installed_at DESC, id DESC
		LIMIT 1
	`, modName, string(domain.InstallSucceeded)).Scan(&rec.RunID, &rec.ModName, &rec.Version, &rec.URL, &rec.Checksum, &status, &rec.Error, &rec.InstalledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrModNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting last install: %w", err)
	}
	rec.Status = domain.InstallStatus(status)
	return &rec, nil
}
