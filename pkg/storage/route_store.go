package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RouteRecord is one device update pushed to the UCM backend.
type RouteRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Verb      string    `json:"verb"`
	Devices   []string  `json:"devices"`
	Status    uint32    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Failed reports whether the backend rejected the update.
func (r RouteRecord) Failed() bool {
	return r.Status != 0
}

// deviceSeparator joins device names in one column; catalog names never contain it.
const deviceSeparator = "|"

// RouteStore journals route updates in SQLite
type RouteStore struct {
	db         *sql.DB
	dbPath     string
	maxRecords int
}

// NewRouteStore opens (creating if needed) the journal at dbPath
func NewRouteStore(dbPath string, maxRecords int) (*RouteStore, error) {
	if dbPath == "" {
		dbPath = "./audiohald.db"
	}

	store := &RouteStore{
		dbPath:     dbPath,
		maxRecords: maxRecords,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize route store: %w", err)
	}

	return store, nil
}

func (rs *RouteStore) initialize() error {
	if err := os.MkdirAll(filepath.Dir(rs.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", rs.dbPath+"?_busy_timeout=10000&_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	rs.db = db

	if err := rs.createTables(); err != nil {
		db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

func (rs *RouteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS route_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		verb TEXT NOT NULL,
		devices TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_route_history_timestamp ON route_history(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_route_history_status ON route_history(status);

	CREATE TABLE IF NOT EXISTS route_stats (
		id INTEGER PRIMARY KEY,
		total_applies INTEGER NOT NULL DEFAULT 0,
		total_failed INTEGER NOT NULL DEFAULT 0,
		last_cleanup DATETIME
	);

	INSERT OR IGNORE INTO route_stats (id, total_applies, total_failed) VALUES (1, 0, 0);
	`

	_, err := rs.db.Exec(schema)
	return err
}

// Record stores rec, filling in its ID and a missing timestamp
func (rs *RouteStore) Record(rec *RouteRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO route_history (timestamp, verb, devices, status, error) VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.Verb, strings.Join(rec.Devices, deviceSeparator), rec.Status, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert route record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get route record ID: %w", err)
	}

	failed := 0
	if rec.Failed() {
		failed = 1
	}
	if _, err := tx.Exec(
		`UPDATE route_stats SET total_applies = total_applies + 1, total_failed = total_failed + ? WHERE id = 1`,
		failed,
	); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	if err := rs.cleanupOldRecords(tx); err != nil {
		return fmt.Errorf("failed to cleanup old records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// CleanupOldRecords removes records beyond the maximum limit
func (rs *RouteStore) CleanupOldRecords() error {
	tx, err := rs.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := rs.cleanupOldRecords(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (rs *RouteStore) cleanupOldRecords(tx *sql.Tx) error {
	if rs.maxRecords <= 0 {
		return nil
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM route_history").Scan(&count); err != nil {
		return err
	}
	if count <= rs.maxRecords {
		return nil
	}

	_, err := tx.Exec(`
		DELETE FROM route_history
		WHERE id IN (
			SELECT id FROM route_history
			ORDER BY id ASC
			LIMIT ?
		)
	`, count-rs.maxRecords)
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE route_stats SET last_cleanup = ? WHERE id = 1", time.Now().UTC())
	return err
}

// Close closes the database connection
func (rs *RouteStore) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}
