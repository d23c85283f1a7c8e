// Package config resolves runtime settings from defaults, an optional .env
// file and INVENTAR_* environment variables. Command-line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultDBPath    = "inventar.sqlite3"
	DefaultAddr      = ":8080"
	DefaultAdminUser = "Admin"
	DefaultCacheTTL  = time.Minute
	DefaultEnvFile   = ".env"
)

// Config holds everything the server needs to start.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string
	// RedisAddr selects the Redis cache when set; otherwise an in-memory
	// cache is used.
	RedisAddr   string
	RedisPrefix string
	CacheTTL    time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:      DefaultDBPath,
		Addr:        DefaultAddr,
		AdminUser:   DefaultAdminUser,
		RedisPrefix: "inventar:",
		CacheTTL:    DefaultCacheTTL,
	}
}

// Load returns the defaults overridden by envFile (if it exists) and then
// by the process environment. Variables already set in the environment
// win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := Default()
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv("INVENTAR_" + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("DB", &cfg.DBPath)
	str("ADDR", &cfg.Addr)
	str("ADMIN_USER", &cfg.AdminUser)
	str("LOG", &cfg.LogPath)
	str("REDIS", &cfg.RedisAddr)
	str("REDIS_PREFIX", &cfg.RedisPrefix)

	if v, ok := os.LookupEnv("INVENTAR_CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("INVENTAR_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = ttl
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if c.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.AdminUser == "" {
		return errors.New("admin username must not be empty")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	return nil
}
