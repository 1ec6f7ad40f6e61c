package money

import (
	"testing"

	"github.com/shopspring/decimal"

	"tcpos/internal/domain"
)

func TestToDisplayRoundsRielToWholeUnits(t *testing.T) {
	conv := MustConverter(decimal.NewFromInt(DefaultKHRRate))

	got := conv.ToDisplay(decimal.RequireFromString("17.60"), domain.CurrencyKHR)
	if !got.Equal(decimal.NewFromInt(72160)) {
		t.Fatalf("expected 72160, got %s", got)
	}

	got = conv.ToDisplay(decimal.RequireFromString("0.0003"), domain.CurrencyKHR)
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1.23 riel to round to 1, got %s", got)
	}
}

func TestCurrencyRoundTripMatchesRate(t *testing.T) {
	conv := MustConverter(decimal.NewFromInt(4100))

	for _, raw := range []string{"1.00", "3.00", "17.60", "125.25"} {
		usd := decimal.RequireFromString(raw)
		khr := conv.ToDisplay(usd, domain.CurrencyKHR)
		back := conv.ToUSD(khr, domain.CurrencyKHR)
		if !back.Equal(usd) {
			t.Fatalf("round trip of %s produced %s via %s", raw, back, khr)
		}
	}

	if got := conv.ToDisplay(decimal.NewFromInt(1), domain.CurrencyKHR); !got.Equal(decimal.NewFromInt(4100)) {
		t.Fatalf("expected $1.00 to display as 4100 riel, got %s", got)
	}
}

func TestNewConverterRejectsNonPositiveRate(t *testing.T) {
	if _, err := NewConverter(decimal.Zero); err == nil {
		t.Fatalf("expected zero rate to be rejected")
	}
	if _, err := NewConverter(decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected negative rate to be rejected")
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount string
		cur    domain.Currency
		want   string
	}{
		{"17.6", domain.CurrencyUSD, "$17.60"},
		{"1234.5", domain.CurrencyUSD, "$1,234.50"},
		{"0", domain.CurrencyUSD, "$0.00"},
		{"-2.4", domain.CurrencyUSD, "-$2.40"},
		{"72160", domain.CurrencyKHR, "72,160៛"},
		{"1230000", domain.CurrencyKHR, "1,230,000៛"},
		{"0", domain.CurrencyKHR, "0៛"},
	}
	for _, tc := range cases {
		got := Format(decimal.RequireFromString(tc.amount), tc.cur)
		if got != tc.want {
			t.Fatalf("format %s %s: expected %q, got %q", tc.amount, tc.cur, tc.want, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"20":       "20",
		" $20.00 ": "20",
		"72,160":   "72160",
		"72160៛":   "72160",
		"":         "0",
	}
	for raw, want := range cases {
		got, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}

	for _, raw := range []string{"abc", "1.2.3", "NaN"} {
		if _, err := ParseAmount(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
