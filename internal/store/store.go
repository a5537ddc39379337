// Package store persists dictionary records, settings snapshots, and
// batch run history in a local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection used by the sidecar's own bookkeeping
// (not the search engine's index). Grounded on the teacher's
// database/sql usage for its metrics store: plain SQL with
// CREATE TABLE IF NOT EXISTS migrations run at startup.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// runs schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one file handle

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dictionary_entries (
		word TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT 'manual',
		added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		total INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		elapsed_ms REAL NOT NULL,
		task_ids TEXT NOT NULL DEFAULT '[]',
		started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate store schema: %w", err)
	}
	return nil
}

// DictionaryRecord mirrors one row of dictionary_entries. Source tracks
// where the word came from ("manual" for an operator-added word, "wakame"
// for the built-in loanword preset, or an imported dictionary file's
// basename).
type DictionaryRecord struct {
	Word    string
	Source  string
	AddedAt time.Time
}

// AddDictionaryWords records new dictionary words under the given
// source, ignoring duplicates. A word already present keeps its
// original source; re-adding it under a different source is a no-op.
func (s *Store) AddDictionaryWords(words []string, source string) error {
	if source == "" {
		source = "manual"
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO dictionary_entries (word, source) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, w := range words {
		if _, err := stmt.Exec(w, source); err != nil {
			return fmt.Errorf("insert dictionary word: %w", err)
		}
	}
	return tx.Commit()
}

// ListDictionaryWords returns every recorded dictionary word.
func (s *Store) ListDictionaryWords() ([]DictionaryRecord, error) {
	rows, err := s.db.Query(`SELECT word, source, added_at FROM dictionary_entries ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("list dictionary words: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DictionaryRecord
	for rows.Next() {
		var rec DictionaryRecord
		if err := rows.Scan(&rec.Word, &rec.Source, &rec.AddedAt); err != nil {
			return nil, fmt.Errorf("scan dictionary row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveSettingsSnapshot records a point-in-time settings export (JSON
// payload as produced by internal/settings.Export).
func (s *Store) SaveSettingsSnapshot(payload []byte) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO settings_snapshots (payload) VALUES (?)`, string(payload))
	if err != nil {
		return 0, fmt.Errorf("save settings snapshot: %w", err)
	}
	return res.LastInsertId()
}

// LatestSettingsSnapshot returns the most recently saved settings
// payload, or ("", sql.ErrNoRows) if none exist yet.
func (s *Store) LatestSettingsSnapshot() (string, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM settings_snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	return payload, err
}

// BatchRunRecord mirrors one row of batch_runs: the audit trail of one
// finished batch run, read back by RecentBatchRuns.
// ID is a client-generated UUID rather than an autoincrement integer so a
// caller (the CLI today, a future queue consumer later) can know the run's
// identity before the insert commits, and can log it alongside the
// BatchEngine.Run call that produced it.
type BatchRunRecord struct {
	ID         string
	Total      int
	Completed  int
	Failed     int
	Skipped    int
	ElapsedMs  float64
	TaskIDs    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordBatchRun persists the aggregate counters of a finished batch. If
// rec.ID is empty, one is generated.
func (s *Store) RecordBatchRun(rec BatchRunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	taskIDs, err := json.Marshal(rec.TaskIDs)
	if err != nil {
		return "", fmt.Errorf("encode task ids: %w", err)
	}
	finishedAt := rec.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = rec.StartedAt
	}

	_, err = s.db.Exec(
		`INSERT INTO batch_runs (id, total, completed, failed, skipped, elapsed_ms, task_ids, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Total, rec.Completed, rec.Failed, rec.Skipped, rec.ElapsedMs, string(taskIDs), finishedAt,
	)
	if err != nil {
		return "", fmt.Errorf("record batch run: %w", err)
	}
	return rec.ID, nil
}

// RecentBatchRuns returns up to limit most recent batch run records,
// newest first.
func (s *Store) RecentBatchRuns(limit int) ([]BatchRunRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, total, completed, failed, skipped, elapsed_ms, task_ids, started_at, finished_at FROM batch_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []BatchRunRecord
	for rows.Next() {
		var rec BatchRunRecord
		var taskIDs string
		var finishedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Total, &rec.Completed, &rec.Failed, &rec.Skipped, &rec.ElapsedMs, &taskIDs, &rec.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan batch run row: %w", err)
		}
		if err := json.Unmarshal([]byte(taskIDs), &rec.TaskIDs); err != nil {
			return nil, fmt.Errorf("decode task ids: %w", err)
		}
		if finishedAt.Valid {
			rec.FinishedAt = finishedAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
