// Package sqlite persists an audit journal of applied stop-loss updates.
package sqlite

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Journal records every attempted SL write, successful or not, so a partial
// failure across a batch stays reconstructable after the fact.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sl_updates (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		leg_key     TEXT NOT NULL,
		batch       TEXT NOT NULL,
		instrument  TEXT NOT NULL,
		side        TEXT NOT NULL,
		new_sl      REAL NOT NULL,
		ok          INTEGER NOT NULL,
		error       TEXT,
		applied_at  DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sl_updates_batch ON sl_updates(batch);
	CREATE INDEX IF NOT EXISTS idx_sl_updates_leg ON sl_updates(leg_key);
	CREATE INDEX IF NOT EXISTS idx_sl_updates_applied_at ON sl_updates(applied_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened SL update journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// Entry is one journaled SL write attempt.
type Entry struct {
	ID         int64   `json:"id"`
	LegKey     string  `json:"leg_key"`
	Batch      string  `json:"batch"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	NewSL      float64 `json:"new_sl"`
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
	AppliedAt  string  `json:"applied_at"`
}

// Record persists one write attempt to the journal.
func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	appliedAt := e.AppliedAt
	if appliedAt == "" {
		appliedAt = time.Now().Format(time.RFC3339)
	}

	_, err := j.db.Exec(
		`INSERT INTO sl_updates (leg_key, batch, instrument, side, new_sl, ok, error, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.LegKey,
		e.Batch,
		e.Instrument,
		e.Side,
		e.NewSL,
		boolToInt(e.OK),
		e.Error,
		appliedAt,
	)
	return err
}

// Recent returns the last N journal entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, leg_key, batch, instrument, side, new_sl, ok, error, applied_at
		 FROM sl_updates ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ok int
		var errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.LegKey, &e.Batch, &e.Instrument, &e.Side,
			&e.NewSL, &ok, &errMsg, &e.AppliedAt); err != nil {
			continue
		}
		e.OK = ok != 0
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, nil
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
