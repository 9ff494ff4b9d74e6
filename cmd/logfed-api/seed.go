package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/config"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/logging"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/model"
)

// seedFile is the YAML shape for bootstrapping groups and their tenant
// database configurations in a dev environment.
type seedFile struct {
	Groups []seedGroup `yaml:"groups"`
}

type seedGroup struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Database    *seedDatabase `yaml:"database"`
}

type seedDatabase struct {
	ConnectionString string `yaml:"connection_string"`
	Password         string `yaml:"password"`
	Enabled          bool   `yaml:"enabled"`
}

func seed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "seeds/tenants.yaml", "Seed file with groups and tenant databases")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg)

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to read seed file: %v\n", err)
		os.Exit(1)
	}

	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid seed file: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewMetadataPool(ctx, cfg.MetadataDatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	vault, err := crypto.NewVault(cfg.EncryptionKey, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize vault: %v\n", err)
		os.Exit(1)
	}

	groups := core.NewGroupService(pool, logger)

	for _, g := range sf.Groups {
		_, err := pool.Exec(ctx,
			`INSERT INTO groups (id, name, description, data)
			 VALUES ($1, $2, $3, '{}'::jsonb)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description`,
			g.ID, g.Name, g.Description,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to upsert group %s: %v\n", g.ID, err)
			os.Exit(1)
		}

		if g.Database == nil {
			fmt.Printf("seeded group %s (no database)\n", g.ID)
			continue
		}

		desc, err := db.ParseDescriptor(g.Database.ConnectionString)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: group %s: %v\n", g.ID, err)
			os.Exit(1)
		}

		ciphertext, err := vault.EncryptPassword(g.Database.Password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: group %s: failed to encrypt password: %v\n", g.ID, err)
			os.Exit(1)
		}

		dbCfg := model.DatabaseConfig{
			Version: 1,
			Enabled: g.Database.Enabled,
			Connection: model.ConnectionConfig{
				Host:     desc.Host,
				Port:     desc.Port,
				Database: desc.Database,
				User:     desc.User,
				Password: ciphertext,
				SSL:      cfg.RequireSSL,
			},
			ConfiguredAt: time.Now().Unix(),
			ConfiguredBy: "seed",
		}
		if err := groups.SetDatabaseConfig(ctx, g.ID, dbCfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: group %s: %v\n", g.ID, err)
			os.Exit(1)
		}
		fmt.Printf("seeded group %s with database %s@%s:%d/%s\n", g.ID, desc.User, desc.Host, desc.Port, desc.Database)
	}
}
