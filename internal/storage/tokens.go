package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tokenColumns = "id, name, kind, secret_hash, created_at, expires_at, revoked_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*TokenRecord, error) {
	var (
		t                    TokenRecord
		kind                 string
		createdAt            int64
		expiresAt, revokedAt sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Name, &kind, &t.SecretHash, &createdAt, &expiresAt, &revokedAt); err != nil {
		return nil, err
	}

	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	t.Kind = k
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	t.ExpiresAt = fromNanos(expiresAt)
	t.RevokedAt = fromNanos(revokedAt)
	return &t, nil
}

// InsertIfNameAbsent stores a new token record in a single statement.
// Returns ErrDuplicate if a live token with the same name (or the same hash) exists,
// so two racing inserts for one name can never both succeed.
func (s *SQLiteStorage) InsertIfNameAbsent(ctx context.Context, rec *TokenRecord) (*TokenRecord, error) {
	if rec.Name == "" {
		return nil, errors.New("name required")
	}
	if rec.SecretHash == "" {
		return nil, errors.New("secret hash required")
	}

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO tokens (name, kind, secret_hash, created_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		rec.Name, string(rec.Kind), rec.SecretHash, created.UnixNano(), toNanos(rec.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID: %w", err)
	}

	return &TokenRecord{
		ID:         id,
		Name:       rec.Name,
		Kind:       rec.Kind,
		SecretHash: rec.SecretHash,
		CreatedAt:  time.Unix(0, created.UnixNano()).UTC(),
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}

// ReplaceHashForName swaps the secret hash of the live token called name,
// provided its current hash is still oldHash. The row keeps its ID; created_at
// moves to at. Returns ErrNotFound when no live row matches both name and oldHash.
func (s *SQLiteStorage) ReplaceHashForName(ctx context.Context, name, oldHash, newHash string, at time.Time) (*TokenRecord, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tokens SET secret_hash = ?, created_at = ? WHERE name = ? AND secret_hash = ? AND revoked_at IS NULL",
		newHash, at.UnixNano(), name, oldHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to replace token hash: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.FindByName(ctx, name)
}

// FindByHash retrieves a token by its secret hash, revoked or not.
// This is the authentication lookup. Returns ErrNotFound if the hash doesn't exist.
func (s *SQLiteStorage) FindByHash(ctx context.Context, hash string) (*TokenRecord, error) {
	t, err := scanToken(s.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE secret_hash = ?", hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token by hash: %w", err)
	}
	return t, nil
}

// FindByName retrieves the live token with the given name.
// Returns ErrNotFound if there is none.
func (s *SQLiteStorage) FindByName(ctx context.Context, name string) (*TokenRecord, error) {
	t, err := scanToken(s.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE name = ? AND revoked_at IS NULL", name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token by name: %w", err)
	}
	return t, nil
}

// MarkRevoked revokes the live token with the given name.
// Returns ErrNotFound if there is none.
func (s *SQLiteStorage) MarkRevoked(ctx context.Context, name string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tokens SET revoked_at = ? WHERE name = ? AND revoked_at IS NULL",
		at.UnixNano(), name)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns all live tokens in creation order.
// Returns empty slice if no tokens exist.
func (s *SQLiteStorage) List(ctx context.Context) ([]*TokenRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tokenColumns+" FROM tokens WHERE revoked_at IS NULL ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	tokens := make([]*TokenRecord, 0)
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

// HasLiveOperator reports whether the operator token exists.
func (s *SQLiteStorage) HasLiveOperator(ctx context.Context) (bool, error) {
	var count int64

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tokens WHERE kind = ? AND revoked_at IS NULL", string(KindOperator)).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check operator token: %w", err)
	}

	return count > 0, nil
}
