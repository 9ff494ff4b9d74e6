package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// PoolError marks a tenant database as unreachable or rejecting
// authentication. Federated queries treat it as a per-tenant failure,
// never a request failure.
type PoolError struct {
	TenantID string
	Err      error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("tenant %s pool: %v", e.TenantID, e.Err)
}

func (e *PoolError) Unwrap() error { return e.Err }

// Pool is the subset of pgxpool.Pool the query path uses.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Options bound each tenant-side pool. Tenant databases are customer
// infrastructure; the ceiling protects them from fan-out bursts.
type Options struct {
	MinConns       int32
	MaxConns       int32
	ConnectTimeout time.Duration
}

// DefaultOptions mirrors the service defaults: 1–5 connections per
// tenant, 10s connect timeout.
func DefaultOptions() Options {
	return Options{MinConns: 1, MaxConns: 5, ConnectTimeout: 10 * time.Second}
}

// Registry owns one bounded connection pool per tenant. Pools are
// created lazily on first use, cached for the process lifetime, and
// torn down only by Close/CloseAll. A tenant is never served by more
// than one pool at a time.
type Registry struct {
	vault  *crypto.Vault
	logger zerolog.Logger
	opts   Options

	mu      sync.Mutex
	entries map[string]*poolEntry

	// connect is the dial seam; tests replace it to avoid real sockets.
	connect func(ctx context.Context, dsn string) (Pool, error)
}

type poolEntry struct {
	once sync.Once
	pool Pool
	err  error
}

func NewRegistry(vault *crypto.Vault, logger zerolog.Logger, opts Options) *Registry {
	if opts.MinConns <= 0 {
		opts.MinConns = 1
	}
	if opts.MaxConns < opts.MinConns {
		opts.MaxConns = opts.MinConns
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Registry{
		vault:   vault,
		logger:  logger,
		opts:    opts,
		entries: map[string]*poolEntry{},
		connect: connectPgxPool,
	}
}

func connectPgxPool(ctx context.Context, dsn string) (Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse tenant pool config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create tenant pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping tenant database: %w", err)
	}
	return pool, nil
}

// Pool returns the cached pool for tenantID, creating it on first use.
// Creation decrypts the stored password, so a vault key mismatch
// surfaces here as a crypto.ErrDecryptFailed wrap rather than a
// PoolError.
func (r *Registry) Pool(ctx context.Context, tenantID string, cfg model.ConnectionConfig) (Pool, error) {
	r.mu.Lock()
	entry, ok := r.entries[tenantID]
	if !ok {
		entry = &poolEntry{}
		r.entries[tenantID] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.pool, entry.err = r.open(ctx, tenantID, cfg)
	})

	if entry.err != nil {
		// Drop the failed entry so a later request can retry.
		r.mu.Lock()
		if r.entries[tenantID] == entry {
			delete(r.entries, tenantID)
		}
		r.mu.Unlock()
		return nil, entry.err
	}

	// Close may have evicted the entry while the dial was in flight; the
	// pool landed on an orphaned entry and must not be handed out.
	r.mu.Lock()
	registered := r.entries[tenantID] == entry
	r.mu.Unlock()
	if !registered {
		entry.pool.Close()
		return nil, &PoolError{TenantID: tenantID, Err: errors.New("pool closed during creation")}
	}
	return entry.pool, nil
}

func (r *Registry) open(ctx context.Context, tenantID string, cfg model.ConnectionConfig) (Pool, error) {
	password, err := r.vault.DecryptPassword(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("decrypt password for tenant %s: %w", tenantID, err)
	}

	pool, err := r.connect(ctx, r.dsn(cfg, password, r.opts.MinConns, r.opts.MaxConns))
	if err != nil {
		return nil, &PoolError{TenantID: tenantID, Err: err}
	}

	r.logger.Info().
		Str("tenant_id", tenantID).
		Str("host", cfg.Host).
		Int32("max_conns", r.opts.MaxConns).
		Msg("created tenant connection pool")
	return pool, nil
}

// TestConnection probes a tenant database without caching anything: one
// connection, one SELECT 1, then teardown.
func (r *Registry) TestConnection(ctx context.Context, cfg model.ConnectionConfig) error {
	password, err := r.vault.DecryptPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("decrypt password: %w", err)
	}

	pool, err := r.connect(ctx, r.dsn(cfg, password, 1, 1))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("probe query: %w", err)
	}
	return nil
}

// Close tears down the pool for one tenant. Safe to call for unknown
// tenants and safe to call twice.
func (r *Registry) Close(tenantID string) {
	r.mu.Lock()
	entry, ok := r.entries[tenantID]
	if ok {
		delete(r.entries, tenantID)
	}
	r.mu.Unlock()

	if ok && entry.pool != nil {
		entry.pool.Close()
		r.logger.Info().Str("tenant_id", tenantID).Msg("closed tenant connection pool")
	}
}

// CloseAll tears down every cached pool. Called at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = map[string]*poolEntry{}
	r.mu.Unlock()

	for tenantID, entry := range entries {
		if entry.pool != nil {
			entry.pool.Close()
			r.logger.Info().Str("tenant_id", tenantID).Msg("closed tenant connection pool")
		}
	}
}

// Cached reports whether a live pool exists for the tenant. Used by the
// resolver to treat previously used tenants as connectivity-verified.
func (r *Registry) Cached(tenantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[tenantID]
	return ok && entry.pool != nil
}

// PoolStats returns pgx pool statistics per tenant for metric
// collection. Pools behind the test seam without Stat support are
// skipped.
func (r *Registry) PoolStats() map[string]*pgxpool.Stat {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]*pgxpool.Stat, len(r.entries))
	for tenantID, entry := range r.entries {
		if p, ok := entry.pool.(interface{ Stat() *pgxpool.Stat }); ok && entry.pool != nil {
			stats[tenantID] = p.Stat()
		}
	}
	return stats
}

func (r *Registry) dsn(cfg model.ConnectionConfig, password string, minConns, maxConns int32) string {
	sslmode := "disable"
	if cfg.SSL {
		sslmode = "require"
	}
	parts := []string{
		"host=" + quoteDSN(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		"dbname=" + quoteDSN(cfg.Database),
		"user=" + quoteDSN(cfg.User),
		"sslmode=" + sslmode,
		fmt.Sprintf("connect_timeout=%d", int(r.opts.ConnectTimeout.Seconds())),
		fmt.Sprintf("pool_min_conns=%d", minConns),
		fmt.Sprintf("pool_max_conns=%d", maxConns),
	}
	if password != "" {
		parts = append(parts, "password="+quoteDSN(password))
	}
	return strings.Join(parts, " ")
}

// quoteDSN quotes a keyword/value DSN value per libpq rules.
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
