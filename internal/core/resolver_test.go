package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// groupRow returns a scan func yielding one group row with the given
// raw data blob.
func groupRow(id, name, data string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = name
		*(dest[2].(*string)) = "desc " + name
		*(dest[3].(*[]byte)) = []byte(data)
		return nil
	}
}

const enabledDB = `{"database":{"version":1,"enabled":true,"connection":{"host":"db.internal","port":5432,"database":"logs","user":"reader","password":"ct","ssl":true}}}`

func newTestResolver(dbm *mockDB) *ResolverService {
	groups := NewGroupService(dbm, zerolog.Nop())
	return NewResolverService(groups)
}

func TestResolverService_Resolve_Admin(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)
	ctx := context.Background()

	rows := newMockRows(
		groupRow("g1", "alpha", ""),
		groupRow("g2", "beta", enabledDB),
	)
	dbm.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	principal := &model.Principal{ID: "u1", Role: model.RoleAdmin}
	groups, err := svc.Resolve(ctx, principal)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, "g2", groups[1].ID)
	dbm.AssertExpectations(t)
}

func TestResolverService_Resolve_Manager(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)
	ctx := context.Background()

	rows := newMockRows(groupRow("g2", "beta", enabledDB))
	dbm.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	principal := &model.Principal{ID: "u1", Role: model.RoleManager, ManagedGroupIDs: []string{"g2"}}
	groups, err := svc.Resolve(ctx, principal)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g2", groups[0].ID)
	dbm.AssertExpectations(t)
}

func TestResolverService_Resolve_ManagerWithoutGroups(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)

	principal := &model.Principal{ID: "u1", Role: model.RoleManager}
	groups, err := svc.Resolve(context.Background(), principal)
	require.NoError(t, err)
	assert.Empty(t, groups)
	// No managed IDs means no metadata query at all.
	dbm.AssertNotCalled(t, "Query")
}

func TestResolverService_Resolve_User(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)
	ctx := context.Background()

	rows := newMockRows(groupRow("g1", "alpha", enabledDB))
	dbm.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	principal := &model.Principal{ID: "u7", Role: model.RoleUser, GroupIDs: []string{"g1"}}
	groups, err := svc.Resolve(ctx, principal)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].ID)
	dbm.AssertExpectations(t)
}

func TestResolverService_Resolve_Pending(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)

	principal := &model.Principal{ID: "u1", Role: model.RolePending}
	groups, err := svc.Resolve(context.Background(), principal)
	require.NoError(t, err)
	assert.Empty(t, groups)
	dbm.AssertNotCalled(t, "Query")
}

func TestResolverService_Resolve_UnknownRole(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)

	principal := &model.Principal{ID: "u1", Role: model.Role("superuser")}
	groups, err := svc.Resolve(context.Background(), principal)
	require.Error(t, err)
	assert.Nil(t, groups)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestResolverService_ResolveWithDatabase_FiltersUnusable(t *testing.T) {
	dbm := &mockDB{}
	svc := newTestResolver(dbm)
	ctx := context.Background()

	disabledDB := `{"database":{"version":1,"enabled":false,"connection":{"host":"db.internal","port":5432,"database":"logs","user":"reader","password":"ct","ssl":true}}}`
	incompleteDB := `{"database":{"version":1,"enabled":true,"connection":{"host":"","port":5432,"database":"logs","user":"reader","password":"ct","ssl":true}}}`

	rows := newMockRows(
		groupRow("g1", "alpha", enabledDB),
		groupRow("g2", "beta", disabledDB),
		groupRow("g3", "gamma", incompleteDB),
		groupRow("g4", "delta", ""),
	)
	dbm.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	principal := &model.Principal{ID: "u1", Role: model.RoleAdmin}
	groups, err := svc.ResolveWithDatabase(ctx, principal)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].ID)
	dbm.AssertExpectations(t)
}
