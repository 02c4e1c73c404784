package storage

import (
	"context"
	"errors"
	"fmt"
)

// errSchemaMissing means the connection works but the tokens table is gone.
var errSchemaMissing = errors.New("tokens table missing")

// Ping checks the connection and that the token schema is in place.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var tables int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'tokens'").Scan(&tables)
	if err != nil {
		return fmt.Errorf("schema probe failed: %w", err)
	}
	if tables == 0 {
		return errSchemaMissing
	}
	return nil
}
