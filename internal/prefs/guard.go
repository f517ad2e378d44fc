package prefs

import (
	"fmt"

	"coffee/internal/core"
	"coffee/internal/log"
)

// Cache keys.
const (
	KeyRecords        = "coffeeRecords" // legacy, superseded by the record store
	KeyAmount         = "newAmount"
	KeySelectedType   = "selectedType"
	KeyIsCafePurchase = "isCafePurchase"
	KeyPrice          = "price"
	KeyVersion        = "storageVersion"
)

// CurrentVersion is the cache layout understood by this build.
const CurrentVersion = 1

// cachedKeys are wiped when the stored version is older than the current one.
var cachedKeys = []string{KeyRecords, KeyAmount, KeySelectedType, KeyIsCafePurchase, KeyPrice}

// Version returns the stored cache version, 0 when missing or unreadable.
func Version(s *Store) int {
	v, _ := s.Int(KeyVersion)
	return v
}

// Migrate clears every cached key and stamps current when the stored version
// is older. It reports whether a wipe happened. Running it again is a no-op.
func Migrate(s *Store, current int) (bool, error) {
	stored := Version(s)
	if stored >= current {
		return false, nil
	}

	s.Remove(cachedKeys...)
	s.Set(KeyVersion, current)
	if err := s.Flush(); err != nil {
		return true, fmt.Errorf("flush migrated prefs: %w", err)
	}

	s.logger.Info("Prefs cache reset for new version",
		log.FieldOperation, log.OpMigrate,
		log.FieldFromVersion, stored,
		log.FieldToVersion, current)
	return true, nil
}

// FormDefaults are the last values used in the entry form.
type FormDefaults struct {
	Amount         string
	Type           core.CoffeeType
	IsCafePurchase bool
	Price          string
}

// LoadFormDefaults reads the remembered form values. Missing or unreadable
// entries fall back to empty text, espresso and no café purchase.
func LoadFormDefaults(s *Store) FormDefaults {
	fd := FormDefaults{Type: core.Espresso}
	fd.Amount, _ = s.String(KeyAmount)
	fd.Price, _ = s.String(KeyPrice)
	fd.IsCafePurchase, _ = s.Bool(KeyIsCafePurchase)
	if raw, ok := s.String(KeySelectedType); ok {
		if t, err := core.ParseCoffeeType(raw); err == nil {
			fd.Type = t
		}
	}
	return fd
}

// SaveFormDefaults remembers the form values and flushes the cache.
func SaveFormDefaults(s *Store, fd FormDefaults) error {
	s.Set(KeyAmount, fd.Amount)
	s.Set(KeySelectedType, string(fd.Type))
	s.Set(KeyIsCafePurchase, fd.IsCafePurchase)
	s.Set(KeyPrice, fd.Price)
	return s.Flush()
}
