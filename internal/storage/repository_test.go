package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"coffee/internal/core"
	"coffee/internal/log"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs returns an id allocator yielding id-01, id-02, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func openTestRepo(t *testing.T, path string, ttl time.Duration) *SQLiteRepository {
	t.Helper()
	repo, err := Open(context.Background(), Options{
		Path:        path,
		Location:    time.UTC,
		SnapshotTTL: ttl,
		Logger:      discardLogger(),
		NewID:       sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return openTestRepo(t, filepath.Join(t.TempDir(), "coffee.db"), time.Minute)
}

func mustCreate(t *testing.T, repo *SQLiteRepository, in NewRecord) core.Record {
	t.Helper()
	rec, err := repo.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return rec
}

func TestCreateListOrdersByDateThenID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 20, 8, 0, 0, 0, time.UTC)

	a := mustCreate(t, repo, NewRecord{Date: base, Amount: 30, Type: core.Espresso})
	b := mustCreate(t, repo, NewRecord{Date: base.Add(2 * time.Hour), Amount: 200, Type: core.Filter})
	c := mustCreate(t, repo, NewRecord{Date: base, Amount: 30, Type: core.Espresso})
	d := mustCreate(t, repo, NewRecord{Date: base.AddDate(0, 0, -1), Amount: 150, Type: core.Filter, Price: core.Float(3.5)})

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// same timestamp: id-03 before id-01
	want := []core.Record{b, c, a, d}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	// stable across reopen
	path := repo.Path()
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened := openTestRepo(t, path, 0)
	got, err = reopened.List(ctx)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list after reopen mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	date := time.Date(2025, 1, 20, 9, 15, 42, 123456789, time.UTC)

	created := mustCreate(t, repo, NewRecord{Date: date, Amount: 200, Type: core.Filter, Price: core.Float(45)})
	want := core.Record{ID: "id-01", Date: date, Amount: 200, Type: core.Filter, Price: core.Float(45)}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}

	got, err := repo.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fetched mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Create(context.Background(), NewRecord{Date: time.Now(), Amount: -1, Type: core.Filter})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if repo.HasChanges() {
		t.Fatalf("invalid record must not be staged")
	}
}

func TestCreateLogsRecordFields(t *testing.T) {
	var buf bytes.Buffer
	repo, err := Open(context.Background(), Options{
		Path:     filepath.Join(t.TempDir(), "coffee.db"),
		Location: time.UTC,
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
		NewID:    sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	mustCreate(t, repo, NewRecord{Date: time.Now(), Amount: 200, Type: core.Filter, Price: core.Float(3.5)})

	var entry map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e map[string]any
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("unexpected log line %q: %v", line, err)
		}
		if e["msg"] == "Coffee record saved" {
			entry = e
		}
	}
	if entry == nil {
		t.Fatalf("no create log in %q", buf.String())
	}
	want := map[string]any{
		log.FieldOperation:  log.OpCreate,
		log.FieldRecordID:   "id-01",
		log.FieldCoffeeType: string(core.Filter),
		log.FieldAmountML:   200.0,
		log.FieldHasPrice:   true,
		log.FieldPrice:      3.5,
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

	a := mustCreate(t, repo, NewRecord{Date: now, Amount: 30, Type: core.Espresso})
	b := mustCreate(t, repo, NewRecord{Date: now.Add(time.Minute), Amount: 30, Type: core.Espresso})

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("expected only %s, got %+v", b.ID, got)
	}

	if err := repo.Delete(ctx, "does-not-exist"); err != nil {
		t.Fatalf("unknown delete should be ignored, got %v", err)
	}
	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("repeated delete should be ignored, got %v", err)
	}
	after, _ := repo.List(ctx)
	if diff := cmp.Diff(got, after); diff != "" {
		t.Fatalf("unknown delete changed list (-want +got):\n%s", diff)
	}
	if _, err := repo.Get(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailedDeleteIsNotAppliedLater(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

	kept := mustCreate(t, repo, NewRecord{Date: now, Amount: 30, Type: core.Espresso})

	if _, err := repo.db.Exec(`CREATE TRIGGER block_delete BEFORE DELETE ON coffee_records
		BEGIN SELECT RAISE(ABORT, 'delete blocked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	if err := repo.Delete(ctx, kept.ID); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if repo.HasChanges() {
		t.Fatalf("failed delete must not stay staged")
	}

	if _, err := repo.db.Exec(`DROP TRIGGER block_delete`); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	other := mustCreate(t, repo, NewRecord{Date: now.Add(time.Hour), Amount: 200, Type: core.Filter})

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != other.ID || got[1].ID != kept.ID {
		t.Fatalf("expected both records, got %+v", got)
	}
}

func TestEspressoFilterScenario(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

	esp := core.ParseForm(core.Form{Day: now, Type: core.Espresso}, now)
	espresso := mustCreate(t, repo, NewRecord{Date: esp.Date, Amount: esp.Amount, Type: esp.Type, Price: esp.Price})
	if espresso.Amount != 30 || espresso.Price != nil {
		t.Fatalf("unexpected espresso: %+v", espresso)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}

	fil := core.ParseForm(core.Form{Day: now, Type: core.Filter, AmountText: "200", IsCafePurchase: true, PriceText: "45"}, now.Add(time.Minute))
	filter := mustCreate(t, repo, NewRecord{Date: fil.Date, Amount: fil.Amount, Type: fil.Type, Price: fil.Price})
	if filter.Amount != 200.0 || filter.Price == nil || *filter.Price != 45.0 {
		t.Fatalf("unexpected filter: %+v", filter)
	}

	if err := repo.Delete(ctx, espresso.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != filter.ID || got[0].Type != core.Filter {
		t.Fatalf("expected the filter record to remain, got %+v", got)
	}
}

func TestSaveIsNoopWithoutChanges(t *testing.T) {
	repo := newTestRepo(t)
	if repo.HasChanges() {
		t.Fatalf("fresh repository should have no changes")
	}
	for i := 0; i < 2; i++ {
		if err := repo.Save(context.Background()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
}

func TestStageMergesAndStagedValuesWin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	date := time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

	persisted := mustCreate(t, repo, NewRecord{Date: date, Amount: 100, Type: core.Filter})

	update := persisted
	update.Amount = 250
	update.Price = core.Float(4)
	if err := repo.Stage(update); err != nil {
		t.Fatalf("stage: %v", err)
	}
	staged := core.Record{ID: "imported", Date: date, Amount: 30, Type: core.Espresso}
	if err := repo.Stage(staged); err != nil {
		t.Fatalf("stage: %v", err)
	}
	staged.Amount = 60
	if err := repo.Stage(staged); err != nil {
		t.Fatalf("restage: %v", err)
	}

	// staged changes are not visible before Save
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("expected 1 committed record before save, got %d", n)
	}
	if !repo.HasChanges() {
		t.Fatalf("expected pending changes")
	}
	if err := repo.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if repo.HasChanges() {
		t.Fatalf("save should clear pending changes")
	}

	got, err := repo.Get(ctx, persisted.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(update, got); diff != "" {
		t.Fatalf("staged values should win (-want +got):\n%s", diff)
	}
	imported, err := repo.Get(ctx, "imported")
	if err != nil || imported.Amount != 60 {
		t.Fatalf("expected last staged amount 60, got %+v err=%v", imported, err)
	}
}

func TestRollbackDiscardsPending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Stage(core.Record{ID: "x", Date: time.Now(), Amount: 30, Type: core.Espresso}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	repo.StageDelete("y")
	repo.Rollback()
	if repo.HasChanges() {
		t.Fatalf("rollback should clear pending changes")
	}
	if err := repo.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}
}

func TestListReturnsIndependentSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreate(t, repo, NewRecord{Date: time.Now(), Amount: 200, Type: core.Filter, Price: core.Float(45)})

	first, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	*first[0].Price = 1
	first[0].Amount = 1

	second, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if second[0].Amount != 200 || *second[0].Price != 45 {
		t.Fatalf("mutating a snapshot leaked into the store: %+v", second[0])
	}
}

func TestSnapshotInvalidatedBySave(t *testing.T) {
	repo := openTestRepo(t, filepath.Join(t.TempDir(), "coffee.db"), time.Hour)
	ctx := context.Background()

	if got, _ := repo.List(ctx); len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
	mustCreate(t, repo, NewRecord{Date: time.Now(), Amount: 30, Type: core.Espresso})
	if got, _ := repo.List(ctx); len(got) != 1 {
		t.Fatalf("expected created record to be visible, got %d", len(got))
	}
}

func TestListBetween(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)

	mustCreate(t, repo, NewRecord{Date: day.Add(-time.Nanosecond), Amount: 30, Type: core.Espresso})
	in1 := mustCreate(t, repo, NewRecord{Date: day, Amount: 30, Type: core.Espresso})
	in2 := mustCreate(t, repo, NewRecord{Date: day.Add(23 * time.Hour), Amount: 200, Type: core.Filter})
	mustCreate(t, repo, NewRecord{Date: day.AddDate(0, 0, 1), Amount: 30, Type: core.Espresso})

	got, err := repo.ListBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list between: %v", err)
	}
	if diff := cmp.Diff([]core.Record{in2, in1}, got); diff != "" {
		t.Fatalf("list between mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenRecoversCorruptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffee.db")
	garbage := make([]byte, 8192)
	for i := range garbage {
		garbage[i] = 'x'
	}
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	repo := openTestRepo(t, path, 0)
	n, err := repo.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected empty recreated store, got n=%d err=%v", n, err)
	}
	mustCreate(t, repo, NewRecord{Date: time.Now(), Amount: 30, Type: core.Espresso})
}

func TestOpenRecoversDirtySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffee.db")
	repo := openTestRepo(t, path, 0)
	mustCreate(t, repo, NewRecord{Date: time.Now(), Amount: 30, Type: core.Espresso})
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := raw.Exec("UPDATE " + MigrationsTable + " SET dirty = 1"); err != nil {
		t.Fatalf("mark dirty: %v", err)
	}
	raw.Close()

	recovered := openTestRepo(t, path, 0)
	if n, err := recovered.Count(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected recreated empty store, got n=%d err=%v", n, err)
	}
}

func TestOpenRecoversUnversionedTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffee.db")
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := raw.Exec(`CREATE TABLE coffee_records (id TEXT PRIMARY KEY, cups INTEGER)`); err != nil {
		t.Fatalf("create foreign table: %v", err)
	}
	if _, err := raw.Exec(`INSERT INTO coffee_records (id, cups) VALUES ('legacy', 3)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	raw.Close()

	repo := openTestRepo(t, path, 0)
	ctx := context.Background()
	if n, err := repo.Count(ctx); err != nil || n != 0 {
		t.Fatalf("expected recreated empty store, got n=%d err=%v", n, err)
	}
	rec := mustCreate(t, repo, NewRecord{Date: time.Now(), Amount: 180, Type: core.Filter, Price: core.Float(4)})
	if _, err := repo.Get(ctx, rec.ID); err != nil {
		t.Fatalf("get after recovery: %v", err)
	}
}

func TestOpenUnrecoverable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("file"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	_, err := Open(context.Background(), Options{
		Path:   filepath.Join(blocker, "coffee.db"),
		Logger: discardLogger(),
	})
	if !errors.Is(err, core.ErrStoreUnrecoverable) {
		t.Fatalf("expected ErrStoreUnrecoverable, got %v", err)
	}
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("unrecoverable error should also be ErrStorageUnavailable, got %v", err)
	}
}

func TestDestroyStoreIgnoresMissingFiles(t *testing.T) {
	if err := DestroyStore(filepath.Join(t.TempDir(), "missing.db")); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestDefaultIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := newRecordID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
