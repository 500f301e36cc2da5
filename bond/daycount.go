package bond

import (
	"fmt"
	"strings"
	"time"
)

// DayCount is the closed set of supported day-count bases.
type DayCount int

const (
	DC30360 DayCount = iota
	DC30E360
	DCACT360
	DCACT365
	DCACTACT
)

func (d DayCount) String() string {
	switch d {
	case DC30360:
		return "30/360"
	case DC30E360:
		return "30E/360"
	case DCACT360:
		return "ACT/360"
	case DCACT365:
		return "ACT/365"
	case DCACTACT:
		return "ACT/ACT"
	default:
		return "unknown"
	}
}

// dayCountAliases maps the string variants seen in vendor feeds onto the
// canonical enum. Matching is case-insensitive after trimming.
var dayCountAliases = map[string]DayCount{
	"30/360":      DC30360,
	"30U/360":     DC30360,
	"BOND":        DC30360,
	"30E/360":     DC30E360,
	"EUROBOND":    DC30E360,
	"ACT/360":     DCACT360,
	"A/360":       DCACT360,
	"ACT/365":     DCACT365,
	"ACT/365F":    DCACT365,
	"A/365F":      DCACT365,
	"ACT/ACT":     DCACTACT,
	"ACT/ACTISDA": DCACTACT,
	"A/A":         DCACTACT,
}

// ParseDayCount resolves a vendor day-count string to the canonical enum.
func ParseDayCount(s string) (DayCount, error) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if dc, ok := dayCountAliases[key]; ok {
		return dc, nil
	}
	return 0, fmt.Errorf("ParseDayCount: unsupported day count %q", s)
}

// YearFraction computes the accrual fraction between two dates under the
// basis.
func (d DayCount) YearFraction(start, end time.Time) float64 {
	switch d {
	case DCACT360:
		return days(start, end) / 360.0
	case DCACT365:
		return days(start, end) / 365.0
	case DC30360:
		d1, d2 := start.Day(), end.Day()
		if d1 == 31 {
			d1 = 30
		}
		if d2 == 31 && d1 == 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2)
	case DC30E360:
		d1, d2 := start.Day(), end.Day()
		if d1 > 30 {
			d1 = 30
		}
		if d2 > 30 {
			d2 = 30
		}
		return thirty360(start, end, d1, d2)
	case DCACTACT:
		return actact(start, end)
	default:
		return days(start, end) / 365.0
	}
}

func days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

func thirty360(start, end time.Time, d1, d2 int) float64 {
	y1, m1 := start.Year(), int(start.Month())
	y2, m2 := end.Year(), int(end.Month())
	return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
}

// actact implements ACT/ACT ISDA: actual days in each calendar year over
// that year's length.
func actact(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	if start.Year() == end.Year() {
		return days(start, end) / yearLength(start.Year())
	}
	frac := 0.0
	// Remainder of the start year.
	startNext := time.Date(start.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
	frac += days(start, startNext) / yearLength(start.Year())
	// Whole years in between.
	for y := start.Year() + 1; y < end.Year(); y++ {
		frac += 1.0
	}
	// Elapsed part of the end year.
	endStart := time.Date(end.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	frac += days(endStart, end) / yearLength(end.Year())
	return frac
}

func yearLength(year int) float64 {
	if isLeap(year) {
		return 366.0
	}
	return 365.0
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
