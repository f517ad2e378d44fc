package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	Espresso CoffeeType = "espresso"
	Filter   CoffeeType = "filter"
)

// EspressoAmount is the fixed volume in milliliters of one espresso.
const EspressoAmount = 30.0

type (
	CoffeeType string

	// Record is one logged coffee. Records are never edited once persisted.
	Record struct {
		ID     string
		Date   time.Time
		Amount float64 // milliliters
		Type   CoffeeType
		Price  *float64 // set only for café purchases
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidType   = errors.New("invalid coffee type")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrEmptyID       = errors.New("empty record id")

	// ErrStorageUnavailable means the durable medium could not be opened or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStoreUnrecoverable is returned when the store could not be opened even
	// after destroying and recreating it. Callers must not continue.
	ErrStoreUnrecoverable = fmt.Errorf("%w: recreate failed", ErrStorageUnavailable)
	ErrNotFound           = errors.New("record not found")
	ErrDecode             = errors.New("decode failure")
)

// CoffeeTypes returns every coffee type in declaration order.
func CoffeeTypes() []CoffeeType {
	return []CoffeeType{Espresso, Filter}
}

// ParseCoffeeType accepts the canonical lower-case names as well as the
// capitalised labels ("Espresso", "Filter").
func ParseCoffeeType(s string) (CoffeeType, error) {
	switch CoffeeType(strings.ToLower(strings.TrimSpace(s))) {
	case Espresso:
		return Espresso, nil
	case Filter:
		return Filter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t CoffeeType) Valid() bool {
	return t == Espresso || t == Filter
}

// Ordinal is the position of t in declaration order, or -1 for unknown types.
func (t CoffeeType) Ordinal() int {
	for i, ct := range CoffeeTypes() {
		if ct == t {
			return i
		}
	}
	return -1
}

// Label is the display name of the type.
func (t CoffeeType) Label() string {
	switch t {
	case Espresso:
		return "Espresso"
	case Filter:
		return "Filter"
	}
	return string(t)
}

func (t CoffeeType) String() string {
	return string(t)
}

// HasPrice reports whether the record was a café purchase.
func (r Record) HasPrice() bool {
	return r.Price != nil
}

// PriceOrZero returns the price, or 0 when absent.
func (r Record) PriceOrZero() float64 {
	if r.Price == nil {
		return 0
	}
	return *r.Price
}

// Clone returns a copy that shares no memory with r.
func (r Record) Clone() Record {
	if r.Price != nil {
		p := *r.Price
		r.Price = &p
	}
	return r
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if r.Date.IsZero() {
		return ErrZeroDate
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount < 0 {
		return ErrInvalidAmount
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}
	if r.Price != nil {
		p := *r.Price
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return ErrInvalidPrice
		}
	}
	return nil
}

// AtTimeOfDay returns the calendar day of day combined with the time of day
// of now, in day's location.
func AtTimeOfDay(day, now time.Time) time.Time {
	now = now.In(day.Location())
	y, m, d := day.Date()
	return time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), day.Location())
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Float returns a pointer to v, for optional prices.
func Float(v float64) *float64 {
	return &v
}
