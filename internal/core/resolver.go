package core

import (
	"context"
	"fmt"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// ResolverService computes which tenant databases a principal may
// query. It never touches the tenant databases themselves.
type ResolverService struct {
	groups *GroupService
}

func NewResolverService(groups *GroupService) *ResolverService {
	return &ResolverService{groups: groups}
}

// Resolve returns the groups the principal may query, in deterministic
// (name, id) order. Admins see every group, managers their assigned
// groups, users their memberships, pending users nothing.
func (s *ResolverService) Resolve(ctx context.Context, principal *model.Principal) ([]model.Group, error) {
	switch principal.Role {
	case model.RoleAdmin:
		groups, err := s.groups.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve admin groups: %w", err)
		}
		return groups, nil
	case model.RoleManager:
		groups, err := s.groups.ListByIDs(ctx, principal.ManagedGroupIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve managed groups: %w", err)
		}
		return groups, nil
	case model.RoleUser:
		groups, err := s.groups.ListByMember(ctx, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve member groups: %w", err)
		}
		return groups, nil
	case model.RolePending:
		return nil, nil
	default:
		return nil, fmt.Errorf("resolve: unknown role %q", principal.Role)
	}
}

// ResolveWithDatabase narrows Resolve to groups whose database
// configuration is enabled and complete. Groups without a usable
// configuration are silently excluded; having no database is a normal
// state, not an error.
func (s *ResolverService) ResolveWithDatabase(ctx context.Context, principal *model.Principal) ([]model.Group, error) {
	groups, err := s.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	usable := groups[:0:0]
	for _, g := range groups {
		if g.HasUsableDatabase() {
			usable = append(usable, g)
		}
	}
	return usable, nil
}
