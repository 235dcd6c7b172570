package ledger

import "testing"

func TestBillingMonthPrev(t *testing.T) {
	tests := []struct {
		name string
		in   BillingMonth
		want BillingMonth
	}{
		{"mid-year", BillingMonth{2025, June}, BillingMonth{2025, May}},
		{"january rolls back a year", BillingMonth{2025, January}, BillingMonth{2024, December}},
		{"february", BillingMonth{2025, February}, BillingMonth{2025, January}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Prev(); !got.Equal(tt.want) {
				t.Errorf("Prev(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBillingMonthNext(t *testing.T) {
	tests := []struct {
		name string
		in   BillingMonth
		want BillingMonth
	}{
		{"mid-year", BillingMonth{2025, June}, BillingMonth{2025, July}},
		{"december rolls into next year", BillingMonth{2025, December}, BillingMonth{2026, January}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Next(); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBillingMonthBefore(t *testing.T) {
	tests := []struct {
		name string
		a, b BillingMonth
		want bool
	}{
		{"earlier month same year", BillingMonth{2025, March}, BillingMonth{2025, April}, true},
		{"earlier year later month", BillingMonth{2024, December}, BillingMonth{2025, January}, true},
		{"equal", BillingMonth{2025, March}, BillingMonth{2025, March}, false},
		{"later", BillingMonth{2025, May}, BillingMonth{2025, April}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.want {
				t.Errorf("Before(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParseMonthName(t *testing.T) {
	if _, err := ParseMonthName("Juneuary"); err == nil {
		t.Error("expected error for unknown month name")
	}
	m, err := ParseMonthName("October")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != October {
		t.Errorf("got %v, want October", m)
	}
}

func TestMonthFromNumber(t *testing.T) {
	m, err := MonthFromNumber(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != December {
		t.Errorf("got %v, want December", m)
	}
	if _, err := MonthFromNumber(0); err == nil {
		t.Error("expected error for month 0")
	}
	if _, err := MonthFromNumber(13); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestParseMoney(t *testing.T) {
	if _, err := ParseMoney("-5"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := ParseMoney("abc"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
	m, err := ParseMoney("1500.50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "1500.50" {
		t.Errorf("got %s, want 1500.50", m)
	}
	z, err := DefaultMoney("")
	if err != nil || !z.IsZero() {
		t.Errorf("DefaultMoney(\"\") = %v, %v; want zero, nil", z, err)
	}
}
