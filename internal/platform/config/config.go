package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                string
	DatabaseURL         string
	DBMaxConns          int32
	JWTSecret           string
	JWTIssuer           string
	JWTTTL              time.Duration
	Environment         string
	LedgerDeployer      string
	LedgerTaxVault      string
	LedgerTaxBps        int
	LedgerDepositPolicy string
	LedgerUnitDecimals  int
	SeedHR              []string
	SeedDeposit         uint64
	RunMigrations       bool
	RunSeed             bool
	MaxBodyBytes        int64
	RateLimitPerMinute  int
	CORSAllowedOrigins  []string
	YieldInterval       time.Duration
	SnapshotLogInterval time.Duration
	MetricsEnabled      bool
	SentryDSN           string
	LogVerbose          bool
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set in the process environment win over the file.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Addr:                getEnv("APP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 10)),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTIssuer:           getEnv("JWT_ISSUER", "paystream"),
		JWTTTL:              getEnvDuration("JWT_TTL", 12*time.Hour),
		Environment:         getEnv("APP_ENV", "development"),
		LedgerDeployer:      getEnv("LEDGER_DEPLOYER", ""),
		LedgerTaxVault:      getEnv("LEDGER_TAX_VAULT", ""),
		LedgerTaxBps:        getEnvInt("LEDGER_TAX_BPS", 0),
		LedgerDepositPolicy: getEnv("LEDGER_DEPOSIT_POLICY", "open"),
		LedgerUnitDecimals:  getEnvInt("LEDGER_UNIT_DECIMALS", 6),
		SeedHR:              getEnvList("SEED_HR", nil),
		SeedDeposit:         uint64(getEnvInt("SEED_DEPOSIT", 0)),
		RunMigrations:       getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:             getEnvBool("RUN_SEED", false),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		YieldInterval:       getEnvDuration("YIELD_INTERVAL", 0),
		SnapshotLogInterval: getEnvDuration("SNAPSHOT_LOG_INTERVAL", 5*time.Minute),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		LogVerbose:          getEnvBool("LOG_VERBOSE", false),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.LedgerDeployer) == "" {
		return fmt.Errorf("LEDGER_DEPLOYER is required")
	}
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.LedgerTaxBps < 0 || c.LedgerTaxBps > 10000 {
		return fmt.Errorf("LEDGER_TAX_BPS must be between 0 and 10000")
	}
	if c.LedgerTaxBps > 0 && strings.TrimSpace(c.LedgerTaxVault) == "" {
		return fmt.Errorf("LEDGER_TAX_VAULT must be set when LEDGER_TAX_BPS is positive")
	}
	if c.LedgerDepositPolicy != "open" && c.LedgerDepositPolicy != "hr" {
		return fmt.Errorf("LEDGER_DEPOSIT_POLICY must be open or hr")
	}
	if c.LedgerUnitDecimals < 0 || c.LedgerUnitDecimals > 18 {
		return fmt.Errorf("LEDGER_UNIT_DECIMALS must be between 0 and 18")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	return nil
}
