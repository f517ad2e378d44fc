// Package core provides parsing of user-entered form values.
//
// This file contains the functions that turn the free-text amount and price
// fields of the entry form into record values.
package core

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseDecimal converts a non-negative decimal string to a float64.
//
// It accepts both dot (12.5) and comma (12,5) decimal separators. Signs,
// exponents, thousands separators and anything that is not a plain decimal
// number are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimal("200")  -> 200, nil
//	ParseDecimal("45,5") -> 45.5, nil
//	ParseDecimal("-1")   -> 0, ErrInvalidAmount
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	digits := 0
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return 0, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseAmount parses the amount field. Unparsable input yields 0.
func ParseAmount(s string) float64 {
	v, err := ParseDecimal(s)
	if err != nil {
		return 0
	}
	return v
}

// ParsePrice parses the price field. Unparsable input yields nil.
func ParsePrice(s string) *float64 {
	v, err := ParseDecimal(s)
	if err != nil {
		return nil
	}
	return &v
}

// Form is the raw state of the entry form.
type Form struct {
	Day            time.Time
	Type           CoffeeType
	AmountText     string
	IsCafePurchase bool
	PriceText      string
}

// Entry holds the values a Form resolves to, ready to be stored.
type Entry struct {
	Date   time.Time
	Amount float64
	Type   CoffeeType
	Price  *float64
}

// ParseForm resolves a form into an entry. Espresso is always EspressoAmount;
// filter amounts come from AmountText. The price is kept only for café
// purchases. Parse failures fall back to 0 and no price instead of failing.
func ParseForm(f Form, now time.Time) Entry {
	day := f.Day
	if day.IsZero() {
		day = now
	}
	e := Entry{
		Date: AtTimeOfDay(day, now),
		Type: f.Type,
	}
	if !e.Type.Valid() {
		e.Type = Espresso
	}
	if e.Type == Espresso {
		e.Amount = EspressoAmount
	} else {
		e.Amount = ParseAmount(f.AmountText)
	}
	if f.IsCafePurchase {
		e.Price = ParsePrice(f.PriceText)
	}
	return e
}
