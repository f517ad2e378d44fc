package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"coffee/internal/cache"
	"coffee/internal/core"
	"coffee/internal/log"

	_ "modernc.org/sqlite"
)

const snapshotKey = "records"

// Options configures Open.
type Options struct {
	Path string

	// Location is the zone records are returned in. Defaults to time.Local.
	Location *time.Location

	// SnapshotTTL bounds how long a List snapshot is reused. Zero disables
	// snapshot caching. Every save invalidates the snapshot regardless.
	SnapshotTTL time.Duration

	Logger *slog.Logger

	// NewID allocates record ids. Defaults to UUIDv7 strings.
	NewID func() string
}

// NewRecord holds the caller-supplied fields of a record to create.
type NewRecord struct {
	Date   time.Time
	Amount float64
	Type   core.CoffeeType
	Price  *float64
}

type changeKind int

const (
	changeUpsert changeKind = iota
	changeDelete
)

type pendingChange struct {
	kind   changeKind
	record core.Record
}

// SQLiteRepository is the durable record store. All mutations go through a
// single write context guarded by mu: changes are staged and committed
// together by Save.
type SQLiteRepository struct {
	db        *sql.DB
	queries   *Queries
	path      string
	loc       *time.Location
	logger    *slog.Logger
	newID     func() string
	snapshots cache.Cache[[]core.Record]

	mu         sync.Mutex
	pending    map[string]pendingChange
	order      []string
	generation uint64
}

// Open opens the store at opts.Path. If the store cannot be loaded it is
// destroyed and recreated once; when that fails as well the returned error
// wraps core.ErrStoreUnrecoverable and the caller must not continue.
func Open(ctx context.Context, opts Options) (*SQLiteRepository, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openDatabase(ctx, opts.Path)
	if err != nil {
		logger.ErrorContext(ctx, "Record store failed to load", log.FieldError, err, log.FieldPath, opts.Path)

		if derr := DestroyStore(opts.Path); derr != nil {
			logger.ErrorContext(ctx, "Failed to delete record store", log.FieldError, derr, log.FieldPath, opts.Path)
		} else {
			logger.WarnContext(ctx, "Deleted record store", log.FieldPath, opts.Path)
		}

		db, err = openDatabase(ctx, opts.Path)
		if err != nil {
			logger.ErrorContext(ctx, "Record store failed to load after store deletion", log.FieldError, err, log.FieldPath, opts.Path)
			return nil, fmt.Errorf("%w: %w", core.ErrStoreUnrecoverable, err)
		}
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    opts.Path,
		loc:     opts.Location,
		logger:  logger,
		newID:   opts.NewID,
		pending: make(map[string]pendingChange),
	}
	if repo.loc == nil {
		repo.loc = time.Local
	}
	if repo.newID == nil {
		repo.newID = newRecordID
	}
	if opts.SnapshotTTL > 0 {
		repo.snapshots = cache.NewLRUCache[[]core.Record](1, opts.SnapshotTTL)
	} else {
		repo.snapshots = cache.Noop[[]core.Record]{}
	}

	return repo, nil
}

func openDatabase(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, errors.New("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var check string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&check); err != nil {
		db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if check != "ok" {
		db.Close()
		return nil, fmt.Errorf("integrity check: %s", check)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// DestroyStore removes the database file and its journal side files.
// Missing files are not an error.
func DestroyStore(dbPath string) error {
	var errs []error
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Close commits pending changes and closes the database.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	var errs []error
	if err := r.Save(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if err := r.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// NewID allocates a fresh record id.
func (r *SQLiteRepository) NewID() string {
	return r.newID()
}

// Create stores a new record with a freshly allocated id and commits it.
func (r *SQLiteRepository) Create(ctx context.Context, in NewRecord) (core.Record, error) {
	rec := core.Record{
		ID:     r.newID(),
		Date:   in.Date.In(r.loc),
		Amount: in.Amount,
		Type:   in.Type,
	}
	if in.Price != nil {
		rec.Price = core.Float(*in.Price)
	}
	if err := rec.Validate(); err != nil {
		r.logger.WarnContext(ctx, "Coffee record rejected",
			log.FieldOperation, log.OpCreate,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation)
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stageLocked(pendingChange{kind: changeUpsert, record: rec})
	if err := r.saveLocked(ctx); err != nil {
		r.dropLocked(rec.ID)
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithRecord(rec.ID, string(rec.Type), rec.Amount, rec.Price)
	r.logger.InfoContext(ctx, "Coffee record saved",
		append(fields.ToSlice(), log.FieldDate, rec.Date.Format(time.RFC3339))...)

	return rec.Clone(), nil
}

// List returns every committed record ordered by date descending, then id
// descending. The returned slice is a copy owned by the caller.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Record, error) {
	if cached, ok := r.snapshots.Get(snapshotKey); ok {
		return cloneRecords(cached), nil
	}

	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()

	rows, err := r.queries.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %w", core.ErrStorageUnavailable, err)
	}
	records := r.fromRows(rows)

	r.mu.Lock()
	if r.generation == gen {
		r.snapshots.Set(snapshotKey, records)
	}
	r.mu.Unlock()

	return cloneRecords(records), nil
}

// ListBetween returns committed records with from <= date < to, in List order.
func (r *SQLiteRepository) ListBetween(ctx context.Context, from, to time.Time) ([]core.Record, error) {
	rows, err := r.queries.ListRecordsBetween(ctx, ListRecordsBetweenParams{
		FromUnixNano: from.UnixNano(),
		ToUnixNano:   to.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list records between: %w", core.ErrStorageUnavailable, err)
	}
	return r.fromRows(rows), nil
}

// Get returns the committed record with the given id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Record, error) {
	row, err := r.queries.GetRecord(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: get record: %w", core.ErrStorageUnavailable, err)
	}
	return r.fromRow(row), nil
}

// Count returns the number of committed records.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count records: %w", core.ErrStorageUnavailable, err)
	}
	return n, nil
}

// Delete removes the record with the given id and commits. An unknown id is
// logged and ignored; only storage failures are returned.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.existsLocked(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		r.logger.WarnContext(ctx, "Delete of unknown coffee record ignored",
			log.FieldRecordID, id,
			log.FieldOperation, log.OpDelete,
			log.FieldErrorType, log.ErrorTypeNotFound)
		return nil
	}

	r.stageLocked(pendingChange{kind: changeDelete, record: core.Record{ID: id}})
	if err := r.saveLocked(ctx); err != nil {
		r.dropLocked(id)
		r.logger.ErrorContext(ctx, "Failed to delete coffee record",
			log.FieldRecordID, id,
			log.FieldOperation, log.OpDelete,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase)
		return fmt.Errorf("delete record: %w", err)
	}

	r.logger.InfoContext(ctx, "Coffee record deleted",
		log.FieldRecordID, id,
		log.FieldOperation, log.OpDelete)
	return nil
}

// Exists reports whether id is committed, or staged for upsert.
func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.existsLocked(ctx, id)
}

// Stage adds rec to the write context without committing. Staging an id
// that is already pending replaces the staged values field by field; on
// commit the staged values win over the persisted ones.
func (r *SQLiteRepository) Stage(rec core.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("stage record: %w", err)
	}
	rec = rec.Clone()
	rec.Date = rec.Date.In(r.loc)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stageLocked(pendingChange{kind: changeUpsert, record: rec})
	return nil
}

// StageDelete marks id for deletion on the next Save.
func (r *SQLiteRepository) StageDelete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stageLocked(pendingChange{kind: changeDelete, record: core.Record{ID: id}})
}

// HasChanges reports whether the write context holds uncommitted changes.
func (r *SQLiteRepository) HasChanges() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order) > 0
}

// Rollback discards every uncommitted change.
func (r *SQLiteRepository) Rollback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = make(map[string]pendingChange)
	r.order = nil
}

// Save commits pending changes in one transaction. It is a no-op when
// nothing is pending.
func (r *SQLiteRepository) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(ctx)
}

func (r *SQLiteRepository) stageLocked(ch pendingChange) {
	id := ch.record.ID
	if _, ok := r.pending[id]; !ok {
		r.order = append(r.order, id)
	}
	r.pending[id] = ch
}

func (r *SQLiteRepository) dropLocked(id string) {
	if _, ok := r.pending[id]; !ok {
		return
	}
	delete(r.pending, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *SQLiteRepository) existsLocked(ctx context.Context, id string) (bool, error) {
	if ch, ok := r.pending[id]; ok {
		return ch.kind == changeUpsert, nil
	}
	_, err := r.queries.GetRecord(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get record: %w", core.ErrStorageUnavailable, err)
	}
	return true, nil
}

func (r *SQLiteRepository) saveLocked(ctx context.Context) error {
	if len(r.order) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", core.ErrStorageUnavailable, err)
	}
	q := r.queries.WithTx(tx)

	for _, id := range r.order {
		ch := r.pending[id]
		switch ch.kind {
		case changeUpsert:
			err = q.UpsertRecord(ctx, toParams(ch.record))
		case changeDelete:
			_, err = q.DeleteRecord(ctx, id)
		}
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: write record %s: %w", core.ErrStorageUnavailable, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", core.ErrStorageUnavailable, err)
	}

	r.logger.DebugContext(ctx, "Record changes committed",
		log.FieldOperation, log.OpSave,
		log.FieldCount, len(r.order))

	r.pending = make(map[string]pendingChange)
	r.order = nil
	r.generation++
	r.snapshots.Purge()
	return nil
}

func toParams(rec core.Record) UpsertRecordParams {
	p := UpsertRecordParams{
		ID:           rec.ID,
		DateUnixNano: rec.Date.UnixNano(),
		AmountMl:     rec.Amount,
		Type:         string(rec.Type),
	}
	if rec.Price != nil {
		p.Price = sql.NullFloat64{Float64: *rec.Price, Valid: true}
	}
	return p
}

func (r *SQLiteRepository) fromRow(row CoffeeRecord) core.Record {
	rec := core.Record{
		ID:     row.ID,
		Date:   time.Unix(0, row.DateUnixNano).In(r.loc),
		Amount: row.AmountMl,
		Type:   core.CoffeeType(row.Type),
	}
	if row.Price.Valid {
		rec.Price = core.Float(row.Price.Float64)
	}
	return rec
}

func (r *SQLiteRepository) fromRows(rows []CoffeeRecord) []core.Record {
	records := make([]core.Record, len(rows))
	for i, row := range rows {
		records[i] = r.fromRow(row)
	}
	return records
}

func cloneRecords(in []core.Record) []core.Record {
	out := make([]core.Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}
