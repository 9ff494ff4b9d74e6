package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	MetadataDatabaseURL string
	HTTPListenAddr      string
	LogLevel            string
	ServiceName         string

	// EncryptionKey is the vault key material for tenant database
	// passwords: base64 of a 32-byte key, or a passphrase to derive one
	// from. Empty means generate-and-warn at startup.
	EncryptionKey string

	// RequireSSL is the default SSL policy for newly configured tenant
	// connections.
	RequireSSL bool

	// TenantPoolMinConns/MaxConns bound each tenant-side connection pool.
	TenantPoolMinConns int32
	TenantPoolMaxConns int32

	// TenantQueryTimeout bounds a single per-tenant sub-query during
	// federated fan-out.
	TenantQueryTimeout time.Duration

	// FederationParallelism caps how many tenant databases are queried
	// concurrently.
	FederationParallelism int

	// FrontendBaseURL is consumed by the invitation flow, not by this
	// service's core; carried so one env file configures both.
	FrontendBaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		MetadataDatabaseURL:   getEnv("METADATA_DATABASE_URL", ""),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ServiceName:           getEnv("SERVICE_NAME", "logfed-api"),
		EncryptionKey:         getEnv("DATABASE_PASSWORD_ENCRYPTION_KEY", ""),
		FrontendBaseURL:       getEnv("FRONTEND_BASE_URL", ""),
		RequireSSL:            getEnvBool("DATABASE_REQUIRE_SSL", true),
		TenantPoolMinConns:    int32(getEnvInt("TENANT_POOL_MIN_CONNS", 1)),
		TenantPoolMaxConns:    int32(getEnvInt("TENANT_POOL_MAX_CONNS", 5)),
		FederationParallelism: getEnvInt("FEDERATION_PARALLELISM", 4),
	}

	timeout, err := time.ParseDuration(getEnv("TENANT_QUERY_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TENANT_QUERY_TIMEOUT: %w", err)
	}
	cfg.TenantQueryTimeout = timeout

	return cfg, nil
}

// Validate checks the invariants a running API server depends on.
func (c *Config) Validate() error {
	if c.MetadataDatabaseURL == "" {
		return fmt.Errorf("METADATA_DATABASE_URL is required")
	}
	if c.TenantPoolMinConns < 1 {
		return fmt.Errorf("TENANT_POOL_MIN_CONNS must be at least 1")
	}
	if c.TenantPoolMaxConns < c.TenantPoolMinConns {
		return fmt.Errorf("TENANT_POOL_MAX_CONNS must be >= TENANT_POOL_MIN_CONNS")
	}
	if c.FederationParallelism < 1 {
		return fmt.Errorf("FEDERATION_PARALLELISM must be at least 1")
	}
	if c.TenantQueryTimeout <= 0 {
		return fmt.Errorf("TENANT_QUERY_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
