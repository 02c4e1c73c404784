// Package mockstore provides a configurable mock implementation of the credential store for testing.
//
// The MockStorage type uses function fields for each method, allowing tests to customize behavior
// as needed while providing sensible defaults for methods that aren't customized.
package mockstore

import (
	"context"
	"time"

	"github.com/sipico/tokend/internal/storage"
)

// MockStorage is a configurable mock of the token and catalog stores.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a sensible default value.
type MockStorage struct {
	// Token operations
	InsertIfNameAbsentFunc func(ctx context.Context, rec *storage.TokenRecord) (*storage.TokenRecord, error)
	ReplaceHashForNameFunc func(ctx context.Context, name, oldHash, newHash string, at time.Time) (*storage.TokenRecord, error)
	FindByHashFunc         func(ctx context.Context, hash string) (*storage.TokenRecord, error)
	FindByNameFunc         func(ctx context.Context, name string) (*storage.TokenRecord, error)
	MarkRevokedFunc        func(ctx context.Context, name string, at time.Time) error
	ListFunc               func(ctx context.Context) ([]*storage.TokenRecord, error)
	HasLiveOperatorFunc    func(ctx context.Context) (bool, error)

	// Catalog operations
	CreateDatabaseFunc func(ctx context.Context, name, createdBy string) (*storage.Database, error)
	ListDatabasesFunc  func(ctx context.Context) ([]*storage.Database, error)

	// Lifecycle
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

// InsertIfNameAbsent stores a token record.
func (m *MockStorage) InsertIfNameAbsent(ctx context.Context, rec *storage.TokenRecord) (*storage.TokenRecord, error) {
	if m.InsertIfNameAbsentFunc != nil {
		return m.InsertIfNameAbsentFunc(ctx, rec)
	}
	stored := *rec
	stored.ID = 1
	return &stored, nil
}

// ReplaceHashForName swaps the secret hash of a live token.
func (m *MockStorage) ReplaceHashForName(ctx context.Context, name, oldHash, newHash string, at time.Time) (*storage.TokenRecord, error) {
	if m.ReplaceHashForNameFunc != nil {
		return m.ReplaceHashForNameFunc(ctx, name, oldHash, newHash, at)
	}
	return nil, storage.ErrNotFound
}

// FindByHash retrieves a token by secret hash.
func (m *MockStorage) FindByHash(ctx context.Context, hash string) (*storage.TokenRecord, error) {
	if m.FindByHashFunc != nil {
		return m.FindByHashFunc(ctx, hash)
	}
	return nil, storage.ErrNotFound
}

// FindByName retrieves a live token by name.
func (m *MockStorage) FindByName(ctx context.Context, name string) (*storage.TokenRecord, error) {
	if m.FindByNameFunc != nil {
		return m.FindByNameFunc(ctx, name)
	}
	return nil, storage.ErrNotFound
}

// MarkRevoked revokes a live token.
func (m *MockStorage) MarkRevoked(ctx context.Context, name string, at time.Time) error {
	if m.MarkRevokedFunc != nil {
		return m.MarkRevokedFunc(ctx, name, at)
	}
	return nil
}

// List retrieves all live tokens.
func (m *MockStorage) List(ctx context.Context) ([]*storage.TokenRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*storage.TokenRecord{}, nil
}

// HasLiveOperator reports whether an operator token exists.
func (m *MockStorage) HasLiveOperator(ctx context.Context) (bool, error) {
	if m.HasLiveOperatorFunc != nil {
		return m.HasLiveOperatorFunc(ctx)
	}
	return false, nil
}

// CreateDatabase adds a database to the catalog.
func (m *MockStorage) CreateDatabase(ctx context.Context, name, createdBy string) (*storage.Database, error) {
	if m.CreateDatabaseFunc != nil {
		return m.CreateDatabaseFunc(ctx, name, createdBy)
	}
	return &storage.Database{ID: 1, Name: name, CreatedBy: createdBy, CreatedAt: time.Now().UTC()}, nil
}

// ListDatabases retrieves all databases.
func (m *MockStorage) ListDatabases(ctx context.Context) ([]*storage.Database, error) {
	if m.ListDatabasesFunc != nil {
		return m.ListDatabasesFunc(ctx)
	}
	return []*storage.Database{}, nil
}

// Ping checks database connectivity.
func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close closes the storage.
func (m *MockStorage) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
