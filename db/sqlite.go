package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        company TEXT NOT NULL,
        type TEXT NOT NULL,
        ram INTEGER NOT NULL,
        cpu TEXT NOT NULL,
        hdd INTEGER NOT NULL,
        ssd INTEGER NOT NULL,
        os TEXT NOT NULL,
        gpu TEXT NOT NULL,
        weight REAL NOT NULL,
        touchscreen INTEGER NOT NULL,
        ips INTEGER NOT NULL,
        screensize REAL NOT NULL,
        resolution TEXT NOT NULL,
        ppi REAL NOT NULL,
        predicted_price INTEGER NOT NULL,
        predicted_at TEXT NOT NULL
    );
    `

// SQLiteStore persists estimates to a local database file.
type SQLiteStore struct {
	database *sql.DB
	mu       sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, &StorageError{Op: "open", Cause: errors.New("database path is required")}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "open", Cause: err}
		}
	}

	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, &StorageError{Op: "open", Cause: err}
	}
	// one connection keeps inserts serialized in-process
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(sqliteSchema); err != nil {
		database.Close()
		return nil, &StorageError{Op: "migrate", Cause: err}
	}
	return &SQLiteStore{database: database}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record PredictionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.database.ExecContext(ctx, `
        INSERT INTO predictions (
            company, type, ram, cpu, hdd, ssd, os, gpu, weight,
            touchscreen, ips, screensize, resolution, ppi, predicted_price, predicted_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insertArgs(record)...)
	if err != nil {
		return 0, &StorageError{Op: "save", Cause: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{Op: "save", Cause: err}
	}
	return id, nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]PredictionRecord, error) {
	records, err := queryRecent(ctx, s.database,
		`SELECT `+selectColumns+` FROM predictions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &StorageError{Op: "recent", Cause: err}
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	return s.database.Close()
}
