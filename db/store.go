package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"laptopprice/ml"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// PredictionRecord is one persisted estimate. Rows are never updated.
type PredictionRecord struct {
	ID          int64               `json:"id"`
	Spec        ml.LaptopSpec       `json:"spec"`
	Features    ml.DerivedFeatures  `json:"features"`
	Result      ml.PredictionResult `json:"result"`
	PredictedAt time.Time           `json:"predicted_at"`
}

func NewRecord(spec ml.LaptopSpec, features ml.DerivedFeatures, result ml.PredictionResult, at time.Time) PredictionRecord {
	return PredictionRecord{
		Spec:        spec,
		Features:    features,
		Result:      result,
		PredictedAt: at.UTC(),
	}
}

// Store is an append-only sink for estimates.
type Store interface {
	Save(ctx context.Context, record PredictionRecord) (int64, error)
	Recent(ctx context.Context, limit int) ([]PredictionRecord, error)
	Close() error
}

// StorageError is returned by every Store operation that fails.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Open selects a store implementation by driver name.
func Open(driver, source string) (Store, error) {
	switch driver {
	case DriverSQLite, "sqlite3", "":
		store, err := NewSQLiteStore(source)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := NewPostgresStore(source)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, &StorageError{Op: "open", Cause: fmt.Errorf("unsupported driver %q", driver)}
	}
}

// RoundPPI keeps two decimals for storage only.
func RoundPPI(ppi float64) float64 {
	return math.Round(ppi*100) / 100
}

const selectColumns = `id, company, type, ram, cpu, hdd, ssd, os, gpu, weight,
        touchscreen, ips, screensize, resolution, ppi, predicted_price, predicted_at`

func insertArgs(r PredictionRecord) []interface{} {
	return []interface{}{
		r.Features.Company,
		r.Features.TypeName,
		r.Features.Ram,
		r.Features.CPU,
		r.Features.HDD,
		r.Features.SSD,
		r.Features.OpSys,
		r.Features.GPU,
		r.Features.Weight,
		r.Features.TouchScreen,
		r.Features.IPS,
		r.Spec.ScreenSize,
		r.Spec.Resolution,
		RoundPPI(r.Features.PPI),
		r.Result.Amount,
		r.PredictedAt.UTC().Format(time.RFC3339Nano),
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (PredictionRecord, error) {
	var r PredictionRecord
	var at string
	err := row.Scan(
		&r.ID,
		&r.Features.Company,
		&r.Features.TypeName,
		&r.Features.Ram,
		&r.Features.CPU,
		&r.Features.HDD,
		&r.Features.SSD,
		&r.Features.OpSys,
		&r.Features.GPU,
		&r.Features.Weight,
		&r.Features.TouchScreen,
		&r.Features.IPS,
		&r.Spec.ScreenSize,
		&r.Spec.Resolution,
		&r.Features.PPI,
		&r.Result.Amount,
		&at,
	)
	if err != nil {
		return PredictionRecord{}, err
	}
	r.PredictedAt, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("parse predicted_at %q: %w", at, err)
	}
	r.Spec.Company = r.Features.Company
	r.Spec.TypeName = r.Features.TypeName
	r.Spec.Ram = r.Features.Ram
	r.Spec.Weight = r.Features.Weight
	r.Spec.TouchScreen = r.Features.TouchScreen == 1
	r.Spec.IPS = r.Features.IPS == 1
	r.Spec.CPU = r.Features.CPU
	r.Spec.HDD = r.Features.HDD
	r.Spec.SSD = r.Features.SSD
	r.Spec.GPU = r.Features.GPU
	r.Spec.OpSys = r.Features.OpSys
	return r, nil
}

func queryRecent(ctx context.Context, database *sql.DB, query string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
