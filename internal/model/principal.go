package model

// Principal is the authenticated actor issuing a request. It is
// read-only here; user management lives outside this service.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`

	// GroupIDs are the groups the principal is a member of.
	GroupIDs []string `json:"group_ids,omitempty"`

	// ManagedGroupIDs are the groups a manager administers. Empty for
	// every other role.
	ManagedGroupIDs []string `json:"managed_group_ids,omitempty"`
}

// IsAdmin reports whether the principal has implicit access to every
// group.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccessGroup reports whether the principal may read the given
// group's tenant database.
func (p *Principal) CanAccessGroup(groupID string) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		for _, id := range p.ManagedGroupIDs {
			if id == groupID {
				return true
			}
		}
		return false
	case RoleUser:
		for _, id := range p.GroupIDs {
			if id == groupID {
				return true
			}
		}
		return false
	case RolePending:
		return false
	default:
		return false
	}
}
