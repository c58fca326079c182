// Package store writes and reads test results in the relational stores.
// Every operation opens its own connection and closes it before returning.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/use-agent/serpcheck/models"
)

// Store is a relational store holding the test_results table.
type Store interface {
	Name() string
	Insert(ctx context.Context, r models.TestResult) error
	Recent(ctx context.Context, limit int) ([]models.TestResult, error)
	All(ctx context.Context) ([]models.TestResult, error)
}

// OpenFunc opens a database handle. It matches sql.Open.
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// SQLStore is a Store backed by database/sql and a Dialect.
type SQLStore struct {
	name    string
	dialect Dialect
	dsn     string
	open    OpenFunc
}

// New creates a SQLStore. A nil open uses sql.Open.
func New(name string, dialect Dialect, dsn string, open OpenFunc) *SQLStore {
	if open == nil {
		open = sql.Open
	}
	return &SQLStore{name: name, dialect: dialect, dsn: dsn, open: open}
}

func (s *SQLStore) Name() string { return s.name }

// connect opens a fresh handle limited to a single connection.
func (s *SQLStore) connect() (*sql.DB, error) {
	db, err := s.open(s.dialect.Driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("store %s: open: %w", s.name, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (s *SQLStore) closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Debug("store: close connection", "store", s.name, "error", err)
	}
}

// Insert writes one row inside a transaction. The timestamp column is left
// to the store's default.
func (s *SQLStore) Insert(ctx context.Context, r models.TestResult) (err error) {
	db, err := s.connect()
	if err != nil {
		return err
	}
	defer s.closeDB(db)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store %s: begin: %w", s.name, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("store: rollback failed", "store", s.name, "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, s.dialect.InsertQuery(), r.Name, string(r.Status), r.Details); err != nil {
		return fmt.Errorf("store %s: insert: %w", s.name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store %s: commit: %w", s.name, err)
	}
	return nil
}

// Recent returns the last limit results, oldest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]models.TestResult, error) {
	results, err := s.query(ctx, s.dialect.RecentQuery(), limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(results)
	return results, nil
}

// All returns every result, oldest first.
func (s *SQLStore) All(ctx context.Context) ([]models.TestResult, error) {
	return s.query(ctx, s.dialect.AllQuery())
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) ([]models.TestResult, error) {
	db, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer s.closeDB(db)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store %s: query: %w", s.name, err)
	}
	defer rows.Close()

	var results []models.TestResult
	for rows.Next() {
		var (
			r       models.TestResult
			status  string
			details sql.NullString
		)
		if err := rows.Scan(&r.Name, &status, &details, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("store %s: scan: %w", s.name, err)
		}
		r.Status = models.Status(status)
		r.Details = details.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store %s: rows: %w", s.name, err)
	}
	return results, nil
}
