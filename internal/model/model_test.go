package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", "manager", "user", "pending"} {
		role, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, role.String())
	}

	_, err := ParseRole("superadmin")
	require.Error(t, err)
	_, err = ParseRole("")
	require.Error(t, err)
}

func TestCanAccessGroup(t *testing.T) {
	admin := &Principal{ID: "u1", Role: RoleAdmin}
	assert.True(t, admin.CanAccessGroup("anything"))

	manager := &Principal{ID: "u2", Role: RoleManager, ManagedGroupIDs: []string{"g1"}}
	assert.True(t, manager.CanAccessGroup("g1"))
	assert.False(t, manager.CanAccessGroup("g2"))

	user := &Principal{ID: "u3", Role: RoleUser, GroupIDs: []string{"g2"}}
	assert.True(t, user.CanAccessGroup("g2"))
	assert.False(t, user.CanAccessGroup("g1"))

	pending := &Principal{ID: "u4", Role: RolePending, GroupIDs: []string{"g1"}}
	assert.False(t, pending.CanAccessGroup("g1"))
}

func TestConnectionConfigRedacted(t *testing.T) {
	c := ConnectionConfig{Host: "db.example.com", Port: 5432, Database: "logs", User: "reader", Password: "Y2lwaGVydGV4dA=="}
	r := c.Redacted()
	assert.Equal(t, RedactedPassword, r.Password)
	assert.Equal(t, "Y2lwaGVydGV4dA==", c.Password, "original must not be mutated")

	empty := ConnectionConfig{}
	assert.Equal(t, "", empty.Redacted().Password, "no password stays empty, not masked")
}

func TestHasUsableDatabase(t *testing.T) {
	g := &Group{ID: "g1"}
	assert.False(t, g.HasUsableDatabase(), "no config")

	g.Data.Database = &DatabaseConfig{Enabled: false, Connection: ConnectionConfig{Host: "h", Port: 5432, Database: "d", User: "u"}}
	assert.False(t, g.HasUsableDatabase(), "disabled")

	g.Data.Database.Enabled = true
	assert.True(t, g.HasUsableDatabase())

	g.Data.Database.Connection.Host = ""
	assert.False(t, g.HasUsableDatabase(), "incomplete connection")
}
