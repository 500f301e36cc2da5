package bond

import (
	"fmt"
	"math"

	"github.com/meenmo/oaslib/curve"
)

// DefaultBump is the finite-difference shift: one basis point.
const DefaultBump = 1e-4

// KeyRateTenors are the fixed buckets reported for key-rate durations.
var KeyRateTenors = []struct {
	Label string
	Years float64
}{
	{"1M", 1.0 / 12.0},
	{"3M", 0.25},
	{"6M", 0.5},
	{"1Y", 1.0},
	{"2Y", 2.0},
	{"3Y", 3.0},
	{"5Y", 5.0},
	{"7Y", 7.0},
	{"10Y", 10.0},
	{"20Y", 20.0},
	{"30Y", 30.0},
}

// EffectiveDuration reprices on the curve bumped ±delta (spread held
// fixed) and applies the central-difference duration formula.
func EffectiveDuration(cfs []Cashflow, c *curve.ZeroCurve, spread float64, m int, delta float64) (float64, error) {
	p0 := PriceOnCurve(cfs, c, spread, m)
	if p0 <= 0 {
		return math.NaN(), fmt.Errorf("EffectiveDuration: non-positive base price %.6f", p0)
	}
	up := PriceOnCurve(cfs, c.Bump(delta), spread, m)
	down := PriceOnCurve(cfs, c.Bump(-delta), spread, m)
	return (down - up) / (2.0 * p0 * delta), nil
}

// EffectiveConvexity applies the central second difference on the same
// bumped repricings.
func EffectiveConvexity(cfs []Cashflow, c *curve.ZeroCurve, spread float64, m int, delta float64) (float64, error) {
	p0 := PriceOnCurve(cfs, c, spread, m)
	if p0 <= 0 {
		return math.NaN(), fmt.Errorf("EffectiveConvexity: non-positive base price %.6f", p0)
	}
	up := PriceOnCurve(cfs, c.Bump(delta), spread, m)
	down := PriceOnCurve(cfs, c.Bump(-delta), spread, m)
	return (down + up - 2.0*p0) / (p0 * delta * delta), nil
}

// SpreadDuration bumps the spread rather than the curve.
func SpreadDuration(cfs []Cashflow, c *curve.ZeroCurve, spread float64, m int, delta float64) (float64, error) {
	p0 := PriceOnCurve(cfs, c, spread, m)
	if p0 <= 0 {
		return math.NaN(), fmt.Errorf("SpreadDuration: non-positive base price %.6f", p0)
	}
	up := PriceOnCurve(cfs, c, spread+delta, m)
	down := PriceOnCurve(cfs, c, spread-delta, m)
	return (down - up) / (2.0 * p0 * delta), nil
}

// ModifiedDuration converts effective duration to modified form.
func ModifiedDuration(effectiveDuration, ytm float64, frequency int) float64 {
	return effectiveDuration / (1.0 + ytm/float64(frequency))
}

// KeyRateDurations bumps one resampled curve node per bucket and reprices.
// The curve is first resampled onto the bucket tenors inside its bounds so
// each bump moves exactly one pillar; buckets outside the curve's range are
// omitted from the result. The sum of KRDs approximates the effective
// duration on the resampled curve.
func KeyRateDurations(cfs []Cashflow, c *curve.ZeroCurve, spread float64, m int, delta float64) (map[string]float64, error) {
	tenors := make([]float64, len(KeyRateTenors))
	for i, b := range KeyRateTenors {
		tenors[i] = b.Years
	}
	rc, kept, err := c.Resample(tenors)
	if err != nil {
		return nil, fmt.Errorf("KeyRateDurations: %w", err)
	}

	p0 := PriceOnCurve(cfs, rc, spread, m)
	if p0 <= 0 {
		return nil, fmt.Errorf("KeyRateDurations: non-positive base price %.6f", p0)
	}

	out := make(map[string]float64, len(kept))
	for i, t := range kept {
		up, err := rc.BumpNode(i, delta)
		if err != nil {
			return nil, err
		}
		down, err := rc.BumpNode(i, -delta)
		if err != nil {
			return nil, err
		}
		krd := (PriceOnCurve(cfs, down, spread, m) - PriceOnCurve(cfs, up, spread, m)) / (2.0 * p0 * delta)
		out[labelFor(t)] = krd
	}
	return out, nil
}

func labelFor(years float64) string {
	for _, b := range KeyRateTenors {
		if math.Abs(b.Years-years) < 1e-9 {
			return b.Label
		}
	}
	return fmt.Sprintf("%.2fY", years)
}
