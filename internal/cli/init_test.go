package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coffee/internal/config"
	"coffee/internal/log"
	"coffee/internal/prefs"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DBPath:      filepath.Join(dir, "coffee.db"),
		PrefsPath:   filepath.Join(dir, "prefs.yaml"),
		SnapshotTTL: time.Second,
		Timezone:    "UTC",
		LogLevel:    "debug",
		LogFormat:   "json",
	}
}

func TestInitPrefsWipesLegacyCache(t *testing.T) {
	cfg := testConfig(t)
	legacy := "coffeeRecords: '[]'\nnewAmount: \"120\"\nselectedType: filter\nisCafePurchase: true\nprice: \"3\"\n"
	if err := os.WriteFile(cfg.PrefsPath, []byte(legacy), 0644); err != nil {
		t.Fatalf("write legacy prefs: %v", err)
	}

	store := InitPrefs(testLogger(), cfg)

	if got := prefs.Version(store); got != prefs.CurrentVersion {
		t.Fatalf("version = %d, want %d", got, prefs.CurrentVersion)
	}
	if keys := store.Keys(); len(keys) != 1 || keys[0] != prefs.KeyVersion {
		t.Fatalf("expected only the version key, got %v", keys)
	}

	reopened, err := prefs.Open(cfg.PrefsPath, nil)
	if err != nil {
		t.Fatalf("reopen prefs: %v", err)
	}
	if reopened.Has(prefs.KeyAmount) {
		t.Fatal("wiped key persisted")
	}
}

func TestInitPrefsFallsBackToMemory(t *testing.T) {
	cfg := testConfig(t)
	// a directory cannot be read as a file
	if err := os.Mkdir(cfg.PrefsPath, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	store := InitPrefs(testLogger(), cfg)
	if store == nil {
		t.Fatal("expected an in-memory store")
	}
	if got := prefs.Version(store); got != prefs.CurrentVersion {
		t.Fatalf("version = %d, want %d", got, prefs.CurrentVersion)
	}
}

func TestInitStore(t *testing.T) {
	cfg := testConfig(t)
	repo := InitStore(context.Background(), testLogger(), cfg)
	defer repo.Close()

	if repo.Path() != cfg.DBPath {
		t.Fatalf("path = %q, want %q", repo.Path(), cfg.DBPath)
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := testConfig(t)
	logger := SetupLogger(cfg)
	if logger == nil {
		t.Fatal("expected logger")
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Fatal("debug level should be enabled")
	}
}

func TestShutdownContextStop(t *testing.T) {
	ctx, stop := ShutdownContext(testLogger())
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by stop")
	}
}
