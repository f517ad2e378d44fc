package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coffee/internal/core"
	"coffee/internal/log"
	"coffee/internal/prefs"
	"coffee/internal/stats"
	"coffee/internal/storage"
)

// RecordService orchestrates record operations across the record store, the
// form-defaults cache and the aggregator.
type RecordService struct {
	store  *storage.SQLiteRepository
	prefs  *prefs.Store
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a RecordService.
type Option func(*RecordService)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *RecordService) { s.now = now }
}

// WithLocation sets the zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *RecordService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RecordService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewRecordService(store *storage.SQLiteRepository, p *prefs.Store, opts ...Option) *RecordService {
	s := &RecordService{
		store:  store,
		prefs:  p,
		loc:    time.Local,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chart is the data behind the consumption and price charts of one period.
type Chart struct {
	Period      stats.Period
	Granularity stats.Granularity
	Points      []stats.ChartPoint
	Prices      []stats.PricePoint
}

func (s *RecordService) clock() time.Time {
	return s.now().In(s.loc)
}

// AddFromForm resolves the entry form, stores the resulting record and
// remembers the form selection for next time. The amount and price texts are
// cleared in the remembered defaults once the record is stored.
func (s *RecordService) AddFromForm(ctx context.Context, f core.Form) (core.Record, error) {
	entry := core.ParseForm(f, s.clock())

	rec, err := s.store.Create(ctx, storage.NewRecord{
		Date:   entry.Date,
		Amount: entry.Amount,
		Type:   entry.Type,
		Price:  entry.Price,
	})
	if err != nil {
		return core.Record{}, fmt.Errorf("add record: %w", err)
	}

	if s.prefs != nil {
		fd := prefs.FormDefaults{
			Type:           entry.Type,
			IsCafePurchase: f.IsCafePurchase,
		}
		if err := prefs.SaveFormDefaults(s.prefs, fd); err != nil {
			// record is already stored
			s.logger.WarnContext(ctx, "Failed to remember form defaults",
				log.FieldOperation, log.OpCreate,
				log.FieldError, err)
		}
	}

	return rec, nil
}

// Defaults returns the remembered entry form values.
func (s *RecordService) Defaults() prefs.FormDefaults {
	if s.prefs == nil {
		return prefs.FormDefaults{Type: core.Espresso}
	}
	return prefs.LoadFormDefaults(s.prefs)
}

// Delete removes the record with the given id. Unknown ids are ignored.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// List returns every record, newest first.
func (s *RecordService) List(ctx context.Context) ([]core.Record, error) {
	return s.store.List(ctx)
}

// Day returns the records of the calendar day containing day, newest first.
func (s *RecordService) Day(ctx context.Context, day time.Time) ([]core.Record, error) {
	start := core.StartOfDay(day.In(s.loc))
	records, err := s.store.ListBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	return stats.FilterByDay(records, start), nil
}

// Summary aggregates the records of period p ending now.
func (s *RecordService) Summary(ctx context.Context, p stats.Period) (stats.Summary, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("summary: %w", err)
	}
	now := s.clock()
	return stats.Summarize(stats.FilterByPeriod(records, p, now), now), nil
}

// Types counts the records of period p ending now per coffee type.
func (s *RecordService) Types(ctx context.Context, p stats.Period) ([]stats.TypeCount, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("count types: %w", err)
	}
	return stats.CountByType(stats.FilterByPeriod(records, p, s.clock())), nil
}

// Chart builds the consumption and price series for period p ending now.
func (s *RecordService) Chart(ctx context.Context, p stats.Period) (Chart, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return Chart{}, fmt.Errorf("chart: %w", err)
	}
	now := s.clock()
	g := stats.GranularityFor(p)
	return Chart{
		Period:      p,
		Granularity: g,
		Points:      stats.SeriesForChart(records, p, g, now),
		Prices:      stats.PriceSeries(records, p, now),
	}, nil
}

// Export serializes every record as JSON.
func (s *RecordService) Export(ctx context.Context) ([]byte, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	s.logger.DebugContext(ctx, "Records exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(records))
	return storage.EncodeRecords(records)
}

// Import adds the records in data to the store. A record whose id is already
// stored rejects the payload. Nothing is stored unless the whole payload
// decodes.
func (s *RecordService) Import(ctx context.Context, data []byte) (int, error) {
	records, err := storage.DecodeRecords(ctx, data, s.store)
	if err != nil {
		fields := log.NewFields().
			WithOperation(log.OpImport).
			WithError(err).
			WithErrorType(log.ErrorTypeDecode)
		s.logger.WarnContext(ctx, "Import rejected", fields.ToSlice()...)
		return 0, fmt.Errorf("import: %w", err)
	}
	if err := s.store.Save(ctx); err != nil {
		s.store.Rollback()
		return 0, fmt.Errorf("import: %w", err)
	}
	s.logger.InfoContext(ctx, "Records imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(records))
	return len(records), nil
}

// Close flushes the form defaults and closes the record store.
func (s *RecordService) Close() error {
	var errs []error

	if s.prefs != nil {
		if err := s.prefs.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("prefs: %w", err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
