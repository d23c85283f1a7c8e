// Command inventar runs the inventory server.
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/inventar/internal/analytics"
	"github.com/erazemk/inventar/internal/api"
	"github.com/erazemk/inventar/internal/cache"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inventar",
		Short:         "Inventory tracking server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	f := root.PersistentFlags()
	f.StringP("db", "d", config.DefaultDBPath, "SQLite database path")
	f.StringP("addr", "a", config.DefaultAddr, "listen address")
	f.StringP("user", "u", config.DefaultAdminUser, "admin username on first run")
	f.StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	f.String("redis", "", "Redis URL or host:port for the shared cache (default: in-memory)")
	f.Duration("cache-ttl", config.DefaultCacheTTL, "how long cached reports live")
	f.String("env-file", config.DefaultEnvFile, "dotenv file to read INVENTAR_* settings from")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create a new database and admin account",
			Args:  cobra.NoArgs,
			RunE:  runInit,
		},
		&cobra.Command{
			Use:   "analytics",
			Short: "Print the inventory summary as JSON",
			Args:  cobra.NoArgs,
			RunE:  runAnalytics,
		},
	)
	return root
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}

	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("db", &cfg.DBPath)
	override("addr", &cfg.Addr)
	override("user", &cfg.AdminUser)
	override("log", &cfg.LogPath)
	override("redis", &cfg.RedisAddr)
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL, _ = flags.GetDuration("cache-ttl")
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
		database, password, err := initDatabase(cfg.DBPath, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DBPath, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	slog.Info("database ready", "path", cfg.DBPath)

	jwtSecret, err := store.GetJWTSecret(cmd.Context(), database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	reportCache, err := openCache(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	handler := api.LoggingMiddleware(api.NewRouter(database, jwtSecret, api.Options{
		Cache:    reportCache,
		CacheTTL: cfg.CacheTTL,
	}))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("server started", "addr", cfg.Addr)
	if err := runServer(ctx, server, server.ListenAndServe); err != nil {
		return err
	}

	if rc, ok := reportCache.(*cache.Redis); ok {
		rc.Close()
	}
	slog.Info("server stopped, closing database")
	return nil
}

// shutdownTimeout bounds how long in-flight requests may drain.
const shutdownTimeout = 5 * time.Second

// runServer runs listen until ctx is done, then shuts server down and
// returns only once in-flight requests have drained.
func runServer(ctx context.Context, server *http.Server, listen func() error) error {
	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		drained <- server.Shutdown(shutdownCtx)
	}()

	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	if err := <-drained; err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	return nil
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.DBPath); err == nil {
		return fmt.Errorf("database %s already exists", cfg.DBPath)
	}

	database, password, err := initDatabase(cfg.DBPath, cfg.AdminUser)
	if err != nil {
		return err
	}
	database.Close()

	printInitResult(cfg.DBPath, cfg.AdminUser, password)
	return nil
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("opening %s: %w", cfg.DBPath, err)
	}

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	snap, err := store.LoadSnapshot(cmd.Context(), database)
	if err != nil {
		return err
	}
	summary := analytics.Summarize(snap.Items, snap.Categories, snap.Locations, snap.Movements, time.Now().UTC())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// openDatabase opens the database and makes sure the schema exists.
func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

// openCache connects to Redis when configured and falls back to memory.
func openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		slog.Info("using in-memory cache")
		return cache.NewMemory(), nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rc, err := cache.DialRedis(dialCtx, cfg.RedisAddr, cfg.RedisPrefix)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.Info("using redis cache", "addr", cfg.RedisAddr)
	return rc, nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := openDatabase(path)
	if err != nil {
		os.Remove(path)
		return nil, "", err
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
