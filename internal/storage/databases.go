package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CreateDatabase adds a database to the catalog.
// Returns ErrDuplicate if the name is taken.
func (s *SQLiteStorage) CreateDatabase(ctx context.Context, name, createdBy string) (*Database, error) {
	if name == "" {
		return nil, errors.New("name required")
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO databases (name, created_by, created_at) VALUES (?, ?, ?)",
		name, createdBy, now.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return &Database{ID: id, Name: name, CreatedBy: createdBy, CreatedAt: now}, nil
}

// ListDatabases returns all databases ordered by name.
func (s *SQLiteStorage) ListDatabases(ctx context.Context) ([]*Database, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_by, created_at FROM databases ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query databases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	dbs := make([]*Database, 0)
	for rows.Next() {
		var (
			d         Database
			createdAt int64
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan database row: %w", err)
		}
		d.CreatedAt = time.Unix(0, createdAt).UTC()
		dbs = append(dbs, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating databases: %w", err)
	}

	return dbs, nil
}
