package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// GroupService is the read-side adapter over the group metadata store.
// Group/member CRUD belongs to the user-management service; this one
// only reads what the resolver and the database-config flow need, plus
// the single write that stores a group's database configuration.
type GroupService struct {
	db     DB
	logger zerolog.Logger
}

func NewGroupService(db DB, logger zerolog.Logger) *GroupService {
	return &GroupService{db: db, logger: logger}
}

const groupColumns = `id, name, COALESCE(description, ''), data`

func (s *GroupService) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get group %s: %w", id, ErrGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", id, err)
	}
	g.Data = s.decodeData(g.ID, raw)
	return &g, nil
}

// List returns all groups ordered by (name, id) so federated fan-out
// order is deterministic.
func (s *GroupService) List(ctx context.Context) ([]model.Group, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+groupColumns+` FROM groups ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	return s.scanGroups(rows)
}

// ListByIDs returns the subset of groups whose IDs are in ids, in the
// same deterministic (name, id) order. Unknown IDs are skipped.
func (s *GroupService) ListByIDs(ctx context.Context, ids []string) ([]model.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ANY($1) ORDER BY name, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list groups by ids: %w", err)
	}
	defer rows.Close()
	return s.scanGroups(rows)
}

// ListByMember returns the groups a user is a member of.
func (s *GroupService) ListByMember(ctx context.Context, userID string) ([]model.Group, error) {
	rows, err := s.db.Query(ctx,
		`SELECT g.id, g.name, COALESCE(g.description, ''), g.data
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = $1
		 ORDER BY g.name, g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for member %s: %w", userID, err)
	}
	defer rows.Close()
	return s.scanGroups(rows)
}

// SetDatabaseConfig stores the typed database configuration under the
// group's data blob. jsonb_set keeps other collaborators' keys in the
// blob untouched.
func (s *GroupService) SetDatabaseConfig(ctx context.Context, groupID string, cfg model.DatabaseConfig) error {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode database config: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE groups
		 SET data = jsonb_set(COALESCE(data, '{}'::jsonb), '{database}', $1::jsonb, true)
		 WHERE id = $2`,
		encoded, groupID)
	if err != nil {
		return fmt.Errorf("store database config for group %s: %w", groupID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store database config for group %s: %w", groupID, ErrGroupNotFound)
	}
	return nil
}

func (s *GroupService) scanGroups(rows pgx.Rows) ([]model.Group, error) {
	var groups []model.Group
	for rows.Next() {
		var g model.Group
		var raw []byte
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &raw); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Data = s.decodeData(g.ID, raw)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// decodeData validates the opaque blob at the storage boundary. A
// malformed blob means the group has no usable database configuration;
// it is logged, not propagated, since most groups legitimately carry
// no database key at all.
func (s *GroupService) decodeData(groupID string, raw []byte) model.GroupData {
	if len(raw) == 0 {
		return model.GroupData{}
	}
	var data model.GroupData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn().Str("group_id", groupID).Err(err).Msg("malformed group data blob; treating as unconfigured")
		return model.GroupData{}
	}
	if db := data.Database; db != nil && db.Version > 1 {
		s.logger.Warn().Str("group_id", groupID).Int("version", db.Version).Msg("unsupported database config version; treating as unconfigured")
		return model.GroupData{}
	}
	return data
}
