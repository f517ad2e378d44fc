// Package cli provides common CLI initialization utilities shared by the
// coffee commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"coffee/internal/config"
	"coffee/internal/log"
	"coffee/internal/prefs"
	"coffee/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from the configured level and
// format and sets it as the default logger.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	if level, err := config.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	if cfg.LogFormat != "" {
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the record store described by cfg.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.SQLiteRepository, error) {
	return storage.Open(ctx, storage.Options{
		Path:        cfg.DBPath,
		Location:    cfg.Location(),
		SnapshotTTL: cfg.SnapshotTTL,
		Logger:      logger.WithComponent(log.ComponentStorage).Slog(),
	})
}

// InitStore opens the record store. A store that cannot be opened even after
// being recreated is fatal: the process exits.
func InitStore(ctx context.Context, logger *log.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := OpenStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize record store",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldPath, cfg.DBPath)
		os.Exit(1)
	}
	return repo
}

// InitPrefs opens the form-defaults cache and wipes it when its version is
// older than prefs.CurrentVersion. The cache is disposable: when the file
// cannot be read an in-memory cache is used instead.
func InitPrefs(logger *log.Logger, cfg *config.Config) *prefs.Store {
	plog := logger.WithComponent(log.ComponentPrefs)

	store, err := prefs.Open(cfg.PrefsPath, plog.Slog())
	if err != nil {
		plog.Warn("Failed to open prefs, using in-memory defaults",
			log.FieldError, err,
			log.FieldPath, cfg.PrefsPath)
		store = prefs.NewMemory()
	}

	if _, err := prefs.Migrate(store, prefs.CurrentVersion); err != nil {
		plog.Warn("Failed to persist prefs migration",
			log.FieldError, err,
			log.FieldOperation, log.OpMigrate)
	}
	return store
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM, and a
// function that releases the signal handler.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received",
				"signal", sig.String(),
				log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
