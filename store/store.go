// Package store persists completed runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ftahirops/disktriage/model"
)

// Schema holds one row per run and one row per record of that run. The full
// record is kept as JSON in payload; the other columns are for querying.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    started_at  DATETIME NOT NULL,
    host        TEXT DEFAULT '',
    files       INTEGER DEFAULT 0,
    violations  INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    device          TEXT NOT NULL,
    host            TEXT DEFAULT '',
    target          TEXT DEFAULT '',
    sas_index       TEXT DEFAULT '',
    model           TEXT DEFAULT '',
    serial          TEXT DEFAULT '',
    earliest_error  DATETIME,
    events          INTEGER DEFAULT 0,
    raw_lines       INTEGER DEFAULT 0,
    payload         TEXT NOT NULL,
    PRIMARY KEY (run_id, device)
);

CREATE INDEX IF NOT EXISTS idx_records_serial ON records(serial);
`

// Run describes one invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	Host       string
	Files      int
	Violations int
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("Run store opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores run and its records in one transaction. An empty run.ID is
// replaced by a new UUID, which is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, recs []*model.DiskErrorRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, host, files, violations) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.Host, run.Files, run.Violations); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, r := range recs {
		payload, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", r.Device, err)
		}
		var earliest sql.NullTime
		if t, ok := r.EarliestError(); ok {
			earliest = sql.NullTime{Time: t.UTC(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (run_id, device, host, target, sas_index, model, serial, earliest_error, events, raw_lines, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Device, r.Host, r.Target, r.SASIndex, r.Model, r.Serial, earliest,
			len(r.ErrorEvents), len(r.RawLogLines), string(payload)); err != nil {
			return "", fmt.Errorf("insert record %s: %w", r.Device, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, host, files, violations FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Host, &r.Files, &r.Violations); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Records loads the records of a run ordered by device.
func (s *Store) Records(ctx context.Context, runID string) ([]*model.DiskErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE run_id = ? ORDER BY device`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DiskErrorRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.DiskErrorRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// BySerial returns every stored record of the disk with the given serial,
// oldest run first.
func (s *Store) BySerial(ctx context.Context, serial string) ([]*model.DiskErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.payload FROM records r JOIN runs u ON u.id = r.run_id
		 WHERE r.serial = ? ORDER BY u.started_at`, serial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DiskErrorRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.DiskErrorRecord
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
