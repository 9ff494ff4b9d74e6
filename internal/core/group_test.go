package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

func TestGroupService_GetByID_Success(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "g1"
		*(dest[1].(*string)) = "alpha"
		*(dest[2].(*string)) = "first group"
		*(dest[3].(*[]byte)) = []byte(enabledDB)
		return nil
	}}
	dbm.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	group, err := svc.GetByID(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, group)
	assert.Equal(t, "alpha", group.Name)
	require.NotNil(t, group.Data.Database)
	assert.True(t, group.Data.Database.Enabled)
	assert.Equal(t, "db.internal", group.Data.Database.Connection.Host)
	dbm.AssertExpectations(t)
}

func TestGroupService_GetByID_NotFound(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	dbm.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	group, err := svc.GetByID(ctx, "missing")
	require.Error(t, err)
	assert.Nil(t, group)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	dbm.AssertExpectations(t)
}

func TestGroupService_GetByID_MetadataOutage(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return errors.New("connection reset by peer")
	}}
	dbm.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	group, err := svc.GetByID(ctx, "g1")
	require.Error(t, err)
	assert.Nil(t, group)
	// An unreachable metadata store is an internal failure, not a
	// missing group.
	assert.NotErrorIs(t, err, ErrGroupNotFound)
	assert.Contains(t, err.Error(), "connection reset by peer")
	dbm.AssertExpectations(t)
}

func TestGroupService_GetByID_MalformedDataBlob(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "g1"
		*(dest[1].(*string)) = "alpha"
		*(dest[2].(*string)) = ""
		*(dest[3].(*[]byte)) = []byte(`{not json`)
		return nil
	}}
	dbm.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	group, err := svc.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, group.Data.Database)
	assert.False(t, group.HasUsableDatabase())
	dbm.AssertExpectations(t)
}

func TestGroupService_GetByID_UnsupportedConfigVersion(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	futureDB := `{"database":{"version":2,"enabled":true,"connection":{"host":"db.internal","port":5432,"database":"logs","user":"reader","password":"ct","ssl":true}}}`
	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "g1"
		*(dest[1].(*string)) = "alpha"
		*(dest[2].(*string)) = ""
		*(dest[3].(*[]byte)) = []byte(futureDB)
		return nil
	}}
	dbm.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	group, err := svc.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, group.HasUsableDatabase())
	dbm.AssertExpectations(t)
}

func TestGroupService_List_QueryError(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	dbm.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("connection lost"))

	groups, err := svc.List(ctx)
	require.Error(t, err)
	assert.Nil(t, groups)
	assert.Contains(t, err.Error(), "list groups")
	dbm.AssertExpectations(t)
}

func TestGroupService_SetDatabaseConfig_Success(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	dbm.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	cfg := model.DatabaseConfig{
		Version: 1,
		Enabled: true,
		Connection: model.ConnectionConfig{
			Host: "db.internal", Port: 5432, Database: "logs", User: "reader", Password: "ct", SSL: true,
		},
		ConfiguredAt: 1700000000,
		ConfiguredBy: "admin-1",
	}
	err := svc.SetDatabaseConfig(ctx, "g1", cfg)
	require.NoError(t, err)
	dbm.AssertExpectations(t)
}

func TestGroupService_SetDatabaseConfig_GroupMissing(t *testing.T) {
	dbm := &mockDB{}
	svc := NewGroupService(dbm, zerolog.Nop())
	ctx := context.Background()

	dbm.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := svc.SetDatabaseConfig(ctx, "missing", model.DatabaseConfig{Version: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	dbm.AssertExpectations(t)
}
