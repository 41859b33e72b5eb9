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
	MySQLDSN  string
	RedisURL  string
	JWTSecret string
	JWTTTL    time.Duration
	RPCURL    string
	Port      string

	// Store selects the record store: "mysql" or "memory".
	Store string

	DiscordToken     string
	DiscordChannelID string

	RecordDeposit uint64
	SweepSchedule string
	SS58Prefix    uint16

	LogLevel string
	LogDev   bool

	RateLimit   int // requests per minute and client
	CORSOrigins []string

	TLSCert string
	TLSKey  string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads the environment, after merging a .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MySQLDSN:         getenv("MYSQL_DSN", "council:council@tcp(127.0.0.1:3306)/council?parseTime=true"),
		RedisURL:         getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:        getenv("JWT_SECRET", ""),
		RPCURL:           getenv("RPC_URL", "wss://rpc.polkadot.io"),
		Port:             getenv("PORT", "8080"),
		Store:            strings.ToLower(getenv("STORE", "mysql")),
		DiscordToken:     getenv("DISCORD_TOKEN", ""),
		DiscordChannelID: getenv("DISCORD_CHANNEL_ID", ""),
		SweepSchedule:    getenv("SWEEP_SCHEDULE", "@every 5m"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		CORSOrigins:      splitTrim(getenv("CORS_ORIGINS", "*"), ","),
		TLSCert:          getenv("TLS_CERT", ""),
		TLSKey:           getenv("TLS_KEY", ""),
	}

	var err error
	if cfg.RecordDeposit, err = strconv.ParseUint(getenv("RECORD_DEPOSIT", "0"), 10, 64); err != nil {
		return cfg, fmt.Errorf("RECORD_DEPOSIT: %w", err)
	}
	prefix, err := strconv.ParseUint(getenv("SS58_PREFIX", "0"), 10, 16)
	if err != nil {
		return cfg, fmt.Errorf("SS58_PREFIX: %w", err)
	}
	cfg.SS58Prefix = uint16(prefix)
	if cfg.RateLimit, err = strconv.Atoi(getenv("RATE_LIMIT", "120")); err != nil {
		return cfg, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	if cfg.JWTTTL, err = time.ParseDuration(getenv("JWT_TTL", "24h")); err != nil {
		return cfg, fmt.Errorf("JWT_TTL: %w", err)
	}
	if cfg.LogDev, err = strconv.ParseBool(getenv("LOG_DEV", "false")); err != nil {
		return cfg, fmt.Errorf("LOG_DEV: %w", err)
	}

	switch cfg.Store {
	case "mysql", "memory":
	default:
		return cfg, fmt.Errorf("STORE: unknown store %q", cfg.Store)
	}
	return cfg, nil
}

// RequireSecret fails when no JWT secret is configured; only the API needs
// one.
func (c Config) RequireSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("missing env JWT_SECRET")
	}
	return nil
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
