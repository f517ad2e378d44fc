package core

import (
	"testing"
	"time"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"200", 200, true},
		{"200.5", 200.5, true},
		{"45,5", 45.5, true},
		{" 0 ", 0, true},
		{".5", 0.5, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseForm(t *testing.T) {
	now := time.Date(2025, 1, 20, 9, 45, 0, 0, time.UTC)
	day := time.Date(2025, 1, 19, 0, 0, 0, 0, time.UTC)

	t.Run("espresso ignores amount text", func(t *testing.T) {
		e := ParseForm(Form{Day: day, Type: Espresso, AmountText: "500"}, now)
		if e.Amount != EspressoAmount || e.Type != Espresso || e.Price != nil {
			t.Fatalf("unexpected entry: %+v", e)
		}
		if want := time.Date(2025, 1, 19, 9, 45, 0, 0, time.UTC); !e.Date.Equal(want) {
			t.Fatalf("expected date %v, got %v", want, e.Date)
		}
	})

	t.Run("filter with cafe price", func(t *testing.T) {
		e := ParseForm(Form{Day: day, Type: Filter, AmountText: "200", IsCafePurchase: true, PriceText: "45"}, now)
		if e.Amount != 200 || e.Price == nil || *e.Price != 45 {
			t.Fatalf("unexpected entry: %+v", e)
		}
	})

	t.Run("unparsable values default", func(t *testing.T) {
		e := ParseForm(Form{Day: day, Type: Filter, AmountText: "lots", IsCafePurchase: true, PriceText: "free"}, now)
		if e.Amount != 0 || e.Price != nil {
			t.Fatalf("unexpected entry: %+v", e)
		}
	})

	t.Run("price dropped without cafe flag", func(t *testing.T) {
		e := ParseForm(Form{Day: day, Type: Filter, AmountText: "150", PriceText: "45"}, now)
		if e.Price != nil {
			t.Fatalf("expected no price, got %v", *e.Price)
		}
	})

	t.Run("zero day means today", func(t *testing.T) {
		e := ParseForm(Form{Type: "unknown"}, now)
		if !e.Date.Equal(now) || e.Type != Espresso {
			t.Fatalf("unexpected entry: %+v", e)
		}
	})
}
