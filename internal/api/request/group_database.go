package request

// ConfigureDatabase is the payload for storing a group's database
// configuration. The connection string uses the psql descriptor form:
// "psql -h HOST -p PORT -d DATABASE -U USER".
type ConfigureDatabase struct {
	ConnectionString string `json:"connection_string" validate:"required,max=500"`
	Password         string `json:"password" validate:"max=500"`
	Enabled          *bool  `json:"enabled,omitempty"`
}

// TestDatabase is the payload for probing a candidate configuration
// without persisting it.
type TestDatabase struct {
	ConnectionString string `json:"connection_string" validate:"required,max=500"`
	Password         string `json:"password" validate:"max=500"`
}
