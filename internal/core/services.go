package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// DB is the metadata-store surface the services need. *pgxpool.Pool
// satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row
}

// TenantPools is the connection-registry surface the services need.
// *db.Registry satisfies it.
type TenantPools interface {
	Pool(ctx context.Context, tenantID string, cfg model.ConnectionConfig) (db.Pool, error)
	TestConnection(ctx context.Context, cfg model.ConnectionConfig) error
	Close(tenantID string)
	Cached(tenantID string) bool
}

// Service-level failures the HTTP layer maps to status codes.
var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrAccessDenied   = errors.New("access denied to group")
	ErrNoDatabase     = errors.New("group has no enabled database configuration")
	ErrConnectionTest = errors.New("database connection test failed")
)

// FederationOptions tune the fan-out across tenant databases.
type FederationOptions struct {
	// QueryTimeout bounds each per-tenant sub-query.
	QueryTimeout time.Duration
	// Parallelism caps concurrent tenant queries.
	Parallelism int
	// RequireSSL is the default SSL policy for new configurations.
	RequireSSL bool
}

func (o FederationOptions) withDefaults() FederationOptions {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 30 * time.Second
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 4
	}
	return o
}

type Services struct {
	Group       *GroupService
	Resolver    *ResolverService
	Logs        *LogService
	GroupConfig *GroupConfigService
}

func NewServices(mdb DB, pools TenantPools, vault *crypto.Vault, opts FederationOptions, logger zerolog.Logger) *Services {
	opts = opts.withDefaults()

	group := NewGroupService(mdb, logger)
	resolver := NewResolverService(group)
	return &Services{
		Group:       group,
		Resolver:    resolver,
		Logs:        NewLogService(resolver, group, pools, opts, logger),
		GroupConfig: NewGroupConfigService(group, resolver, pools, vault, opts, logger),
	}
}
