package curve

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ZeroCurve is a zero-rate curve for one currency and as-of date, held as
// ordered (term in years, continuously-observed zero rate as decimal) pairs.
//
// Interpolation is linear on zero rates. The curve never extrapolates:
// queries outside the stated bounds clamp to the nearest pillar.
type ZeroCurve struct {
	currency string
	asOf     time.Time
	terms    []float64
	rates    []float64
}

// NewZeroCurve validates and builds a curve. Terms must be strictly
// increasing with at least two points.
func NewZeroCurve(currency string, asOf time.Time, terms, rates []float64) (*ZeroCurve, error) {
	if len(terms) < 2 {
		return nil, fmt.Errorf("NewZeroCurve: need at least 2 points, got %d", len(terms))
	}
	if len(terms) != len(rates) {
		return nil, fmt.Errorf("NewZeroCurve: terms (%d) and rates (%d) length mismatch", len(terms), len(rates))
	}
	for i := 1; i < len(terms); i++ {
		if terms[i] <= terms[i-1] {
			return nil, fmt.Errorf("NewZeroCurve: terms must be strictly increasing (index %d: %.6f <= %.6f)", i, terms[i], terms[i-1])
		}
	}
	c := &ZeroCurve{
		currency: currency,
		asOf:     asOf,
		terms:    append([]float64(nil), terms...),
		rates:    append([]float64(nil), rates...),
	}
	return c, nil
}

func (c *ZeroCurve) Currency() string { return c.currency }
func (c *ZeroCurve) AsOf() time.Time  { return c.asOf }
func (c *ZeroCurve) Terms() []float64 { return append([]float64(nil), c.terms...) }
func (c *ZeroCurve) Rates() []float64 { return append([]float64(nil), c.rates...) }

// MaxTerm returns the last pillar term in years.
func (c *ZeroCurve) MaxTerm() float64 { return c.terms[len(c.terms)-1] }

// Rate returns the zero rate at term t (years), linearly interpolated.
// Outside [terms[0], terms[n-1]] the nearest pillar rate is used.
func (c *ZeroCurve) Rate(t float64) float64 {
	n := len(c.terms)
	if t <= c.terms[0] {
		return c.rates[0]
	}
	if t >= c.terms[n-1] {
		return c.rates[n-1]
	}

	// First pillar index with terms[i] >= t.
	i := sort.SearchFloat64s(c.terms, t)
	if c.terms[i] == t {
		return c.rates[i]
	}
	t1, t2 := c.terms[i-1], c.terms[i]
	r1, r2 := c.rates[i-1], c.rates[i]
	return r1 + (r2-r1)*(t-t1)/(t2-t1)
}

// Forward returns the instantaneous forward rate f(0,t) = z(t) + t·z'(t),
// with z'(t) by central difference.
func (c *ZeroCurve) Forward(t float64) float64 {
	const h = 1e-4
	lo := t - h
	if lo < 0 {
		lo = 0
	}
	dz := (c.Rate(t+h) - c.Rate(lo)) / (t + h - lo)
	return c.Rate(t) + t*dz
}

// ForwardSlope returns ∂f(0,t)/∂t by central difference on Forward.
func (c *ZeroCurve) ForwardSlope(t float64) float64 {
	const h = 1e-3
	lo := t - h
	if lo < 0 {
		lo = 0
	}
	return (c.Forward(t+h) - c.Forward(lo)) / (t + h - lo)
}

// Bump returns a copy with every rate shifted by delta (decimal, e.g. 1e-4
// for one basis point).
func (c *ZeroCurve) Bump(delta float64) *ZeroCurve {
	out := c.clone()
	for i := range out.rates {
		out.rates[i] += delta
	}
	return out
}

// BumpNode returns a copy with only pillar i shifted by delta.
func (c *ZeroCurve) BumpNode(i int, delta float64) (*ZeroCurve, error) {
	if i < 0 || i >= len(c.terms) {
		return nil, fmt.Errorf("BumpNode: index %d out of range [0,%d)", i, len(c.terms))
	}
	out := c.clone()
	out.rates[i] += delta
	return out, nil
}

// Resample returns a curve with pillars at the given tenors, each rate read
// off this curve. Tenors beyond the curve's bounds are dropped (the clamp
// would duplicate boundary pillars and break monotonicity).
func (c *ZeroCurve) Resample(tenors []float64) (*ZeroCurve, []float64, error) {
	kept := make([]float64, 0, len(tenors))
	rates := make([]float64, 0, len(tenors))
	for _, t := range tenors {
		if t < c.terms[0] || t > c.MaxTerm() {
			continue
		}
		kept = append(kept, t)
		rates = append(rates, c.Rate(t))
	}
	if len(kept) < 2 {
		return nil, nil, fmt.Errorf("Resample: only %d tenors inside curve bounds [%.4f, %.4f]", len(kept), c.terms[0], c.MaxTerm())
	}
	rc, err := NewZeroCurve(c.currency, c.asOf, kept, rates)
	if err != nil {
		return nil, nil, err
	}
	return rc, kept, nil
}

// DiscountFactor returns the discount factor at term t under periodic
// compounding with m periods per year and an additive spread on the zero
// rate. Used by the Z-spread and risk repricers.
func (c *ZeroCurve) DiscountFactor(t, spread float64, m int) float64 {
	if t <= 0 {
		return 1.0
	}
	r := c.Rate(t) + spread
	return math.Pow(1.0+r/float64(m), -float64(m)*t)
}

func (c *ZeroCurve) clone() *ZeroCurve {
	return &ZeroCurve{
		currency: c.currency,
		asOf:     c.asOf,
		terms:    append([]float64(nil), c.terms...),
		rates:    append([]float64(nil), c.rates...),
	}
}
