package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// GroupConfigService manages per-group database configurations:
// parsing descriptors, encrypting passwords, probing connectivity, and
// persisting the result. Admin-only; the HTTP layer enforces that.
type GroupConfigService struct {
	groups   *GroupService
	resolver *ResolverService
	pools    TenantPools
	vault    *crypto.Vault
	opts     FederationOptions
	logger   zerolog.Logger
}

func NewGroupConfigService(groups *GroupService, resolver *ResolverService, pools TenantPools, vault *crypto.Vault, opts FederationOptions, logger zerolog.Logger) *GroupConfigService {
	return &GroupConfigService{
		groups:   groups,
		resolver: resolver,
		pools:    pools,
		vault:    vault,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// GroupStatus pairs a group with the liveness of its database
// connection for the accessible-with-logs listing.
type GroupStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Connected   bool   `json:"connected"`
}

// Configure parses the descriptor, encrypts the password, verifies
// connectivity when the configuration is enabled, and persists it on
// the group. The previously cached pool for the group is dropped so
// the next query dials with the new credentials.
func (s *GroupConfigService) Configure(ctx context.Context, principal *model.Principal, groupID, descriptor, password string, enabled bool) (*model.DatabaseConfig, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	desc, err := db.ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.vault.EncryptPassword(password)
	if err != nil {
		return nil, fmt.Errorf("encrypt password for group %s: %w", groupID, err)
	}

	conn := model.ConnectionConfig{
		Host:     desc.Host,
		Port:     desc.Port,
		Database: desc.Database,
		User:     desc.User,
		Password: ciphertext,
		SSL:      s.opts.RequireSSL,
	}

	// A disabled configuration may be saved unverified; an enabled one
	// must prove it can connect before it is persisted.
	if enabled {
		if err := s.pools.TestConnection(ctx, conn); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionTest, err)
		}
	}

	cfg := model.DatabaseConfig{
		Version:      1,
		Enabled:      enabled,
		Connection:   conn,
		ConfiguredAt: time.Now().Unix(),
		ConfiguredBy: principal.ID,
	}
	if err := s.groups.SetDatabaseConfig(ctx, group.ID, cfg); err != nil {
		return nil, err
	}

	s.pools.Close(group.ID)

	s.logger.Info().
		Str("group_id", group.ID).
		Str("host", conn.Host).
		Str("database", conn.Database).
		Bool("enabled", enabled).
		Str("configured_by", principal.ID).
		Msg("group database configured")

	redacted := cfg.Redacted()
	return &redacted, nil
}

// Config returns the group's stored database configuration with the
// password redacted. A group without one gets a zero, disabled config
// rather than an error.
func (s *GroupConfigService) Config(ctx context.Context, groupID string) (*model.DatabaseConfig, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Data.Database == nil {
		return &model.DatabaseConfig{Enabled: false}, nil
	}

	redacted := group.Data.Database.Redacted()
	return &redacted, nil
}

// TestConnection probes a candidate configuration without persisting
// anything. The password arrives in cleartext and is encrypted only in
// transit through the vault so the registry's DSN path stays uniform.
func (s *GroupConfigService) TestConnection(ctx context.Context, descriptor, password string) error {
	desc, err := db.ParseDescriptor(descriptor)
	if err != nil {
		return err
	}

	ciphertext, err := s.vault.EncryptPassword(password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	conn := model.ConnectionConfig{
		Host:     desc.Host,
		Port:     desc.Port,
		Database: desc.Database,
		User:     desc.User,
		Password: ciphertext,
		SSL:      s.opts.RequireSSL,
	}
	if err := s.pools.TestConnection(ctx, conn); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionTest, err)
	}
	return nil
}

// AccessibleWithLogs lists the groups the principal may query that
// have a usable database, with a per-group connectivity flag. A group
// with a cached pool is reported connected without re-dialing; others
// get a probe, and probe failures mark the group disconnected rather
// than failing the listing.
func (s *GroupConfigService) AccessibleWithLogs(ctx context.Context, principal *model.Principal) ([]GroupStatus, error) {
	groups, err := s.resolver.ResolveWithDatabase(ctx, principal)
	if err != nil {
		return nil, err
	}

	statuses := make([]GroupStatus, 0, len(groups))
	for _, g := range groups {
		status := GroupStatus{ID: g.ID, Name: g.Name, Description: g.Description}
		if s.pools.Cached(g.ID) {
			status.Connected = true
		} else if err := s.pools.TestConnection(ctx, g.Data.Database.Connection); err != nil {
			s.logger.Warn().Str("group_id", g.ID).Err(err).Msg("group database unreachable")
		} else {
			status.Connected = true
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
