package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2025-10")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if ym.Year != 2025 || ym.Month != time.October {
		t.Fatalf("unexpected result %+v", ym)
	}
	if ym.String() != "2025-10" {
		t.Fatalf("round trip gave %q", ym.String())
	}

	for _, bad := range []string{"2025", "2025-13", "10-2025", "not-a-month", ""} {
		if _, err := ParseYearMonth(bad); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q: expected ErrInvalidMonth, got %v", bad, err)
		}
	}
}

func TestYearMonthBoundsAndDays(t *testing.T) {
	ym := YearMonth{Year: 2024, Month: time.February} // leap year
	start, end := ym.Bounds()
	if start != time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected start %v", start)
	}
	if end != time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected end %v", end)
	}
	if ym.Days() != 29 {
		t.Fatalf("expected 29 days, got %d", ym.Days())
	}
	if (YearMonth{Year: 2025, Month: time.April}).Days() != 30 {
		t.Fatal("April should have 30 days")
	}
}
