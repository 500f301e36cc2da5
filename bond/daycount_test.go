package bond_test

import (
	"math"
	"testing"
	"time"

	"github.com/meenmo/oaslib/bond"
)

func TestParseDayCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bond.DayCount
	}{
		{"30/360", bond.DC30360},
		{"bond", bond.DC30360},
		{"30E/360", bond.DC30E360},
		{"  eurobond ", bond.DC30E360},
		{"ACT/360", bond.DCACT360},
		{"act/365", bond.DCACT365},
		{"ACT/365F", bond.DCACT365},
		{"ACT/ACT", bond.DCACTACT},
		{"act/act isda", bond.DCACTACT},
	}
	for _, tc := range cases {
		got, err := bond.ParseDayCount(tc.in)
		if err != nil {
			t.Errorf("ParseDayCount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDayCount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := bond.ParseDayCount("ACT/252"); err == nil {
		t.Error("expected error for unsupported basis")
	}
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	jan15 := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	jul15 := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	jan15next := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		dc    bond.DayCount
		start time.Time
		end   time.Time
		want  float64
		tol   float64
	}{
		{"30/360 half year", bond.DC30360, jan15, jul15, 0.5, 1e-12},
		{"30E/360 half year", bond.DC30E360, jan15, jul15, 0.5, 1e-12},
		{"ACT/360 half year", bond.DCACT360, jan15, jul15, 181.0 / 360.0, 1e-12},
		{"ACT/365 half year", bond.DCACT365, jan15, jul15, 181.0 / 365.0, 1e-12},
		{"ACT/ACT full year", bond.DCACTACT, jan15, jan15next, 1.0, 1e-12},
		{"30/360 full year", bond.DC30360, jan15, jan15next, 1.0, 1e-12},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.dc.YearFraction(tc.start, tc.end); math.Abs(got-tc.want) > tc.tol {
				t.Errorf("YearFraction = %.10f, want %.10f", got, tc.want)
			}
		})
	}
}

func TestYearFraction_ActActAcrossLeapYear(t *testing.T) {
	t.Parallel()

	// 2027-07-01 to 2028-07-01 spans half a leap year.
	start := time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2028, 7, 1, 0, 0, 0, 0, time.UTC)
	want := 184.0/365.0 + 182.0/366.0
	if got := bond.DCACTACT.YearFraction(start, end); math.Abs(got-want) > 1e-10 {
		t.Errorf("ACT/ACT = %.10f, want %.10f", got, want)
	}
}
