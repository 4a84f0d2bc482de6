package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"paystream/internal/auth"
	"paystream/internal/domain/ledger"
	"paystream/internal/platform/address"
	"paystream/internal/platform/config"
	"paystream/internal/platform/db"
	"paystream/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	databaseURLFlag := flag.String("database-url", "", "Postgres URL (or set DATABASE_URL env var)")

	// Commands
	migrateUpFlag := flag.Bool("migrate-up", false, "Apply pending database migrations")
	migrateDownFlag := flag.Bool("migrate-down", false, "Roll back the most recent migration")
	migrateStatusFlag := flag.Bool("migrate-status", false, "Show migration status")
	mintTokenFlag := flag.String("mint-token", "", "Mint a bearer token for this address")
	snapshotFlag := flag.Bool("snapshot", false, "Print the persisted ledger state as JSON")

	// Token options
	tokenTTLFlag := flag.Duration("token-ttl", 0, "Token lifetime (default JWT_TTL)")

	flag.Parse()

	slog.SetDefault(logger.New(*verboseFlag))
	cfg := config.Load()
	if *databaseURLFlag != "" {
		cfg.DatabaseURL = *databaseURLFlag
	}
	ctx := context.Background()

	switch {
	case *migrateUpFlag, *migrateDownFlag, *migrateStatusFlag:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("--database-url is required for migrations")
		}
		if *migrateDownFlag {
			return db.MigrateDown(cfg.DatabaseURL)
		}
		if *migrateStatusFlag {
			return db.MigrateStatus(cfg.DatabaseURL)
		}
		return db.MigrateUp(cfg.DatabaseURL)

	case *mintTokenFlag != "":
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for --mint-token")
		}
		addr, err := address.Parse(*mintTokenFlag)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		ttl := cfg.JWTTTL
		if *tokenTTLFlag > 0 {
			ttl = *tokenTTLFlag
		}
		token, err := auth.GenerateToken(cfg.JWTSecret, cfg.JWTIssuer, addr, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil

	case *snapshotFlag:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("--database-url is required for --snapshot")
		}
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("db connect failed: %w", err)
		}
		defer pool.Close()

		state, balances, found, err := ledger.NewStore(pool).Load(ctx)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("ledger has not been initialised")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"state": state, "balances": balances})
	}

	flag.Usage()
	return nil
}
