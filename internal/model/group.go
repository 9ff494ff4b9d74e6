package model

// RedactedPassword replaces the ciphertext password in every read API.
const RedactedPassword = "***encrypted***"

// Group is a tenant: an organizational group that may own an external
// log database.
type Group struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Data        GroupData `json:"data,omitempty" db:"data"`
}

// GroupData is the typed form of the group's configuration blob. Only
// the database sub-object belongs to this service; the blob may carry
// other collaborators' keys, which are preserved opaquely by the
// metadata layer.
type GroupData struct {
	Database *DatabaseConfig `json:"database,omitempty"`
}

// HasUsableDatabase reports whether the group has an enabled database
// configuration complete enough to connect with.
func (g *Group) HasUsableDatabase() bool {
	db := g.Data.Database
	if db == nil || !db.Enabled {
		return false
	}
	c := db.Connection
	return c.Host != "" && c.Port > 0 && c.Database != "" && c.User != ""
}

// DatabaseConfig is one tenant's stored database configuration.
// Connection.Password always holds vault ciphertext; it is never
// persisted or returned in plaintext.
type DatabaseConfig struct {
	Version      int              `json:"version,omitempty"`
	Enabled      bool             `json:"enabled"`
	Connection   ConnectionConfig `json:"connection"`
	ConfiguredAt int64            `json:"configured_at,omitempty"`
	ConfiguredBy string           `json:"configured_by,omitempty"`
}

// Redacted returns a copy safe to return through read APIs.
func (c DatabaseConfig) Redacted() DatabaseConfig {
	c.Connection = c.Connection.Redacted()
	return c
}

// ConnectionConfig describes how to reach one tenant database.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"` // vault ciphertext
	SSL      bool   `json:"ssl"`
}

// Redacted returns a copy with the password ciphertext masked.
func (c ConnectionConfig) Redacted() ConnectionConfig {
	if c.Password != "" {
		c.Password = RedactedPassword
	}
	return c
}
