package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection holding the local vote cache
type DB struct {
	*sql.DB
}

// NewDB opens (and if needed creates) the vote database under dataDir
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kamervote.db")

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Fetch and analysis are sequential per request; a small pool suffices
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &DB{DB: db}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database initialized", "path", dbPath)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// Raw fetched votes; one row per party per motion. The primary key
		// mirrors the aggregation invariant that a (party, motion) pair is
		// a single observation.
		`CREATE TABLE IF NOT EXISTS votes (
			party_id TEXT NOT NULL,
			motion_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			recorded_at DATETIME NOT NULL,
			fetched_at DATETIME NOT NULL,
			PRIMARY KEY (party_id, motion_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_votes_recorded_at ON votes(recorded_at)`,

		// Completed fetch windows, so a study run can tell a cold cache
		// apart from a window with genuinely no votes
		`CREATE TABLE IF NOT EXISTS fetch_windows (
			id TEXT PRIMARY KEY,
			window_start DATETIME NOT NULL,
			window_end DATETIME NOT NULL,
			row_count INTEGER NOT NULL,
			fetched_at DATETIME NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}
