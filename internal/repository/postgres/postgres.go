// Package postgres talks to the hosted database, where review image
// persistence lives in stored procedures.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/msomdec/field-review/internal/domain"
)

// DB wraps a Postgres connection pool.
type DB struct {
	SqlDB *sql.DB
}

// New opens a pool for dsn and verifies connectivity.
func New(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{SqlDB: db}, nil
}

// Migrate is a no-op: the hosted schema and procedures are managed by the
// platform.
func (d *DB) Migrate(context.Context) error { return nil }

func (d *DB) Ping(ctx context.Context) error { return d.SqlDB.PingContext(ctx) }

func (d *DB) Close() error { return d.SqlDB.Close() }

func (d *DB) Reviews() *ReviewRepository {
	return &ReviewRepository{db: d.SqlDB}
}

func (d *DB) Parcels() *ParcelRepository {
	return &ParcelRepository{db: d.SqlDB}
}

// Images returns the procedure-backed image backend.
func (d *DB) Images() *ImageBackend {
	return &ImageBackend{db: d.SqlDB}
}

// backendError converts a driver error into a domain.BackendError, keeping
// the server's message and detail text.
func backendError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		details := pqErr.Detail
		if details == "" {
			details = pqErr.Hint
		}
		return &domain.BackendError{Message: pqErr.Message, Details: details}
	}
	return fmt.Errorf("%s: %w", op, err)
}
