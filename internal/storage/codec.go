package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coffee/internal/core"
)

// WireRecord is the interchange form of a record.
type WireRecord struct {
	ID     string   `json:"id"`
	Date   string   `json:"date"`
	Amount float64  `json:"amount"`
	Type   string   `json:"type"`
	Price  *float64 `json:"price"`
}

// Stager receives decoded records. *SQLiteRepository implements it.
type Stager interface {
	NewID() string
	Exists(ctx context.Context, id string) (bool, error)
	Stage(rec core.Record) error
}

// ToWire converts a record to its interchange form.
func ToWire(rec core.Record) WireRecord {
	w := WireRecord{
		ID:     rec.ID,
		Date:   rec.Date.Format(time.RFC3339Nano),
		Amount: rec.Amount,
		Type:   string(rec.Type),
	}
	if rec.Price != nil {
		w.Price = core.Float(*rec.Price)
	}
	return w
}

// FromWire converts an interchange record back into a record. newID fills
// in a missing id.
func FromWire(w WireRecord, newID func() string) (core.Record, error) {
	date, err := time.Parse(time.RFC3339Nano, w.Date)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: date %q: %w", core.ErrDecode, w.Date, err)
	}
	typ, err := core.ParseCoffeeType(w.Type)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	rec := core.Record{
		ID:     w.ID,
		Date:   date,
		Amount: w.Amount,
		Type:   typ,
	}
	if w.Price != nil {
		rec.Price = core.Float(*w.Price)
	}
	if rec.ID == "" && newID != nil {
		rec.ID = newID()
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("%w: record %q: %w", core.ErrDecode, rec.ID, err)
	}
	return rec, nil
}

// EncodeRecords serializes records as a JSON array.
func EncodeRecords(records []core.Record) ([]byte, error) {
	wire := make([]WireRecord, len(records))
	for i, rec := range records {
		wire[i] = ToWire(rec)
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}

// DecodeRecords parses a JSON array of records and stages each one into dst.
// The payload is validated as a whole first: on any error nothing is staged.
// Records are never edited once stored, so an id dst already holds is
// rejected. The caller commits with Save.
func DecodeRecords(ctx context.Context, data []byte, dst Stager) ([]core.Record, error) {
	var wire []WireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}

	records := make([]core.Record, 0, len(wire))
	seen := make(map[string]struct{}, len(wire))
	for i, w := range wire {
		rec, err := FromWire(w, dst.NewID)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", core.ErrDecode, rec.ID)
		}
		exists, err := dst.Exists(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: record %q already exists", core.ErrDecode, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}

	for _, rec := range records {
		if err := dst.Stage(rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}
