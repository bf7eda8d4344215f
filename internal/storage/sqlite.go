package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	inMemory := dbPath == ":memory:"
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
