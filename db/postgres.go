package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id BIGSERIAL PRIMARY KEY,
        company TEXT NOT NULL,
        type TEXT NOT NULL,
        ram INTEGER NOT NULL,
        cpu TEXT NOT NULL,
        hdd INTEGER NOT NULL,
        ssd INTEGER NOT NULL,
        os TEXT NOT NULL,
        gpu TEXT NOT NULL,
        weight DOUBLE PRECISION NOT NULL,
        touchscreen SMALLINT NOT NULL,
        ips SMALLINT NOT NULL,
        screensize DOUBLE PRECISION NOT NULL,
        resolution TEXT NOT NULL,
        ppi DOUBLE PRECISION NOT NULL,
        predicted_price BIGINT NOT NULL,
        predicted_at TEXT NOT NULL
    );
    `

// PostgresStore persists estimates to a shared PostgreSQL database. Each
// insert is a single statement, so concurrent writers never leave partial rows.
type PostgresStore struct {
	database *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, &StorageError{Op: "open", Cause: errors.New("postgres dsn is required")}
	}
	database, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Cause: err}
	}
	database.SetMaxOpenConns(5)
	database.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, &StorageError{Op: "ping", Cause: err}
	}
	if _, err := database.ExecContext(ctx, postgresSchema); err != nil {
		database.Close()
		return nil, &StorageError{Op: "migrate", Cause: err}
	}
	return &PostgresStore{database: database}, nil
}

func (s *PostgresStore) Save(ctx context.Context, record PredictionRecord) (int64, error) {
	var id int64
	err := s.database.QueryRowContext(ctx, `
        INSERT INTO predictions (
            company, type, ram, cpu, hdd, ssd, os, gpu, weight,
            touchscreen, ips, screensize, resolution, ppi, predicted_price, predicted_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id`,
		insertArgs(record)...).Scan(&id)
	if err != nil {
		return 0, &StorageError{Op: "save", Cause: err}
	}
	return id, nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]PredictionRecord, error) {
	records, err := queryRecent(ctx, s.database,
		`SELECT `+selectColumns+` FROM predictions ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, &StorageError{Op: "recent", Cause: err}
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	return s.database.Close()
}
