package prefs

import (
	"path/filepath"
	"testing"

	"coffee/internal/core"
)

func TestMigrateWipesOlderVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Set(KeyVersion, 0)
	s.Set(KeyRecords, "[]")
	s.Set(KeyAmount, "200")
	s.Set(KeySelectedType, "Filter")
	s.Set(KeyIsCafePurchase, true)
	s.Set(KeyPrice, "45")
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	migrated, err := Migrate(s, CurrentVersion)
	if err != nil || !migrated {
		t.Fatalf("expected migration, got migrated=%v err=%v", migrated, err)
	}
	for _, k := range []string{KeyRecords, KeyAmount, KeySelectedType, KeyIsCafePurchase, KeyPrice} {
		if s.Has(k) {
			t.Fatalf("key %q should be cleared", k)
		}
	}
	if v := Version(s); v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}

	// persisted, and a second run is a no-op
	reopened, err := Open(path, discardLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v := Version(reopened); v != 1 {
		t.Fatalf("expected persisted version 1, got %d", v)
	}
	reopened.Set(KeyAmount, "150")
	migrated, err = Migrate(reopened, CurrentVersion)
	if err != nil || migrated {
		t.Fatalf("second run should be a no-op, got migrated=%v err=%v", migrated, err)
	}
	if v, _ := reopened.String(KeyAmount); v != "150" {
		t.Fatalf("no-op migration must keep values, got %q", v)
	}
}

func TestMigrateMissingVersionCountsAsZero(t *testing.T) {
	s := NewMemory()
	s.Set(KeyPrice, "45")
	migrated, err := Migrate(s, CurrentVersion)
	if err != nil || !migrated {
		t.Fatalf("expected migration, got migrated=%v err=%v", migrated, err)
	}
	if s.Has(KeyPrice) || Version(s) != CurrentVersion {
		t.Fatalf("unexpected state: keys=%v", s.Keys())
	}
}

func TestMigrateNewerVersionUntouched(t *testing.T) {
	s := NewMemory()
	s.Set(KeyVersion, 2)
	s.Set(KeyAmount, "90")
	migrated, err := Migrate(s, CurrentVersion)
	if err != nil || migrated {
		t.Fatalf("expected no migration, got migrated=%v err=%v", migrated, err)
	}
	if Version(s) != 2 || !s.Has(KeyAmount) {
		t.Fatalf("newer cache should be left alone: %v", s.Keys())
	}
}

func TestFormDefaults(t *testing.T) {
	s := NewMemory()
	fd := LoadFormDefaults(s)
	if fd != (FormDefaults{Type: core.Espresso}) {
		t.Fatalf("unexpected empty defaults: %+v", fd)
	}

	want := FormDefaults{Amount: "200", Type: core.Filter, IsCafePurchase: true, Price: "45"}
	if err := SaveFormDefaults(s, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := LoadFormDefaults(s); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	s.Set(KeySelectedType, "latte")
	s.Set(KeyIsCafePurchase, "true")
	got := LoadFormDefaults(s)
	if got.Type != core.Espresso || got.IsCafePurchase {
		t.Fatalf("undecodable values should fall back, got %+v", got)
	}
}
