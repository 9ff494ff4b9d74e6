package core

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
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

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

// newEmptyMockRows returns a mockRows that yields zero rows.
func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                    { return m.err }
func (m *mockRows) Close()                                        {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription  { return nil }
func (m *mockRows) RawValues() [][]byte                           { return nil }
func (m *mockRows) Values() ([]any, error)                        { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                               { return nil }

// ---------- Fake tenant pool ----------

// fakeTenantPool implements db.Pool with canned per-call behavior.
// Safe for concurrent use by fan-out tests.
type fakeTenantPool struct {
	mu        sync.Mutex
	queryFunc func(ctx context.Context, sql string, args []any) (pgx.Rows, error)
	rowFunc   func(sql string, args []any) pgx.Row
	queries   []string
}

func (p *fakeTenantPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.mu.Lock()
	p.queries = append(p.queries, sql)
	p.mu.Unlock()
	if p.queryFunc == nil {
		return newEmptyMockRows(), nil
	}
	return p.queryFunc(ctx, sql, args)
}

func (p *fakeTenantPool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.mu.Lock()
	p.queries = append(p.queries, sql)
	p.mu.Unlock()
	if p.rowFunc == nil {
		return &mockRow{scanFunc: func(dest ...any) error { return nil }}
	}
	return p.rowFunc(sql, args)
}

func (p *fakeTenantPool) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *fakeTenantPool) Ping(_ context.Context) error { return nil }
func (p *fakeTenantPool) Close()                       {}

// ---------- Fake tenant pools (registry) ----------

// fakeTenantPools implements TenantPools over a static map of tenant
// pools, with per-tenant dial errors for isolation tests.
type fakeTenantPools struct {
	mu       sync.Mutex
	pools    map[string]*fakeTenantPool
	poolErrs map[string]error
	testErr  error
	cached   map[string]bool
	closed   []string
	tested   int
}

func newFakeTenantPools() *fakeTenantPools {
	return &fakeTenantPools{
		pools:    map[string]*fakeTenantPool{},
		poolErrs: map[string]error{},
		cached:   map[string]bool{},
	}
}

func (f *fakeTenantPools) Pool(_ context.Context, tenantID string, _ model.ConnectionConfig) (db.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.poolErrs[tenantID]; err != nil {
		return nil, &db.PoolError{TenantID: tenantID, Err: err}
	}
	pool, ok := f.pools[tenantID]
	if !ok {
		pool = &fakeTenantPool{}
		f.pools[tenantID] = pool
	}
	f.cached[tenantID] = true
	return pool, nil
}

func (f *fakeTenantPools) TestConnection(_ context.Context, _ model.ConnectionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tested++
	return f.testErr
}

func (f *fakeTenantPools) Close(tenantID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, tenantID)
	delete(f.cached, tenantID)
}

func (f *fakeTenantPools) Cached(tenantID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached[tenantID]
}
