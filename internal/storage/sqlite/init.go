package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import the SQLite driver.
	_ "github.com/mattn/go-sqlite3"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "downloads.db"

// InitDB opens the SQLite database at path and creates the downloads table if
// it doesn't exist.
func InitDB(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers anyway; one connection avoids lock errors.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY,
		file_path TEXT UNIQUE NOT NULL,
		url TEXT NOT NULL,
		sha256 TEXT,
		size INTEGER DEFAULT 0,
		downloaded_at TEXT,
		status TEXT DEFAULT 'downloading',
		locked_by TEXT
	)`)
	if err != nil {
		db.Close()

		return nil, err
	}

	return db, nil
}
