// Package journal records discovery runs in SQLite: one row per run plus
// one row per service outcome, so repeated discoveries against the same
// fleet can be compared later.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is an optional run recorder backed by SQLite.
type Journal struct {
	db    *sql.DB
	runID int64
}

// Open opens or creates the journal database and migrates its schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		host_count INTEGER NOT NULL DEFAULT 0,
		from_version TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS service_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		service TEXT NOT NULL,
		group_name TEXT NOT NULL,
		hosts TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_service_results_run ON service_results(run_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// StartRun opens a new run record. Subsequent RecordService calls attach to
// it.
func (j *Journal) StartRun(ctx context.Context, hostCount int, fromVersion string) error {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, host_count, from_version) VALUES (?, ?, ?)`,
		time.Now().UTC(), hostCount, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	j.runID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}
	return nil
}

// RecordService stores the outcome of one service's discovery. Status is
// "ok", "no-hosts" or "failed"; detail carries the error text when there is
// one.
func (j *Journal) RecordService(ctx context.Context, service, group string, hosts []string, status, detail string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO service_results (run_id, service, group_name, hosts, status, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		j.runID, service, group, strings.Join(hosts, ","), status, detail)
	if err != nil {
		return fmt.Errorf("failed to record service result: %w", err)
	}
	return nil
}

// FinishRun closes the run record.
func (j *Journal) FinishRun(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), j.runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
