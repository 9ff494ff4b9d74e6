package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/config"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/logging"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/metrics"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/platform"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "create-api-token":
			createAPIToken(os.Args[2:])
			return
		case "seed":
			seed(os.Args[2:])
			return
		}
	}

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metadataPool, err := db.NewMetadataPool(ctx, cfg.MetadataDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to metadata database")
	}
	defer metadataPool.Close()

	vault, err := crypto.NewVault(cfg.EncryptionKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize credential vault")
	}

	registry := db.NewRegistry(vault, logger, db.Options{
		MinConns: cfg.TenantPoolMinConns,
		MaxConns: cfg.TenantPoolMaxConns,
	})
	defer registry.CloseAll()

	metrics.RegisterMetadataPoolMetrics(metadataPool)
	metrics.RegisterRegistryMetrics(registry)

	srv := api.NewServer(logger, metadataPool, registry, vault, cfg)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting federated log API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAPIToken(args []string) {
	fs := flag.NewFlagSet("create-api-token", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to issue the token for (required)")
	fs.Parse(args)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "error: --user is required")
		fmt.Fprintln(os.Stderr, "usage: logfed-api create-api-token --user <user-id>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewMetadataPool(ctx, cfg.MetadataDatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to generate token: %v\n", err)
		os.Exit(1)
	}
	rawToken := hex.EncodeToString(raw)

	_, err = pool.Exec(ctx,
		`INSERT INTO api_tokens (id, user_id, token_hash, created_at) VALUES ($1, $2, $3, now())`,
		platform.NewID(), *userID, crypto.TokenHash(rawToken),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to store token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API token created for user %s.\n\n", *userID)
	fmt.Printf("  Token: %s\n\n", rawToken)
	fmt.Printf("Save this token - it will not be shown again.\n")
}
