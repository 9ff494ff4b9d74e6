package handler

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// mockDB implements core.DB for wiring real services under handlers.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// stubPools implements core.TenantPools with fixed outcomes.
type stubPools struct {
	poolErr error
	testErr error
	cached  bool
}

func (s *stubPools) Pool(_ context.Context, tenantID string, _ model.ConnectionConfig) (db.Pool, error) {
	if s.poolErr != nil {
		return nil, &db.PoolError{TenantID: tenantID, Err: s.poolErr}
	}
	return nil, &db.PoolError{TenantID: tenantID, Err: context.Canceled}
}

func (s *stubPools) TestConnection(context.Context, model.ConnectionConfig) error { return s.testErr }
func (s *stubPools) Close(string)                                                {}
func (s *stubPools) Cached(string) bool                                          { return s.cached }
