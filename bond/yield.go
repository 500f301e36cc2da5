package bond

import (
	"fmt"
	"math"

	"github.com/meenmo/oaslib/curve"
	"github.com/meenmo/oaslib/solver"
)

// Yield search bounds, annualized.
const (
	YieldFloor   = -0.50
	YieldCeiling = 1.00
	// Z-spread and OAS searches run over ±1000bp.
	SpreadFloor   = -0.10
	SpreadCeiling = 0.10
)

// PriceFromYield discounts the cashflows at a single yield y under
// periodic compounding with m periods per year.
func PriceFromYield(cfs []Cashflow, y float64, m int) float64 {
	pv := 0.0
	for _, cf := range cfs {
		if cf.Time <= 0 {
			continue
		}
		pv += cf.Amount() * math.Pow(1.0+y/float64(m), -float64(m)*cf.Time)
	}
	return pv
}

// PriceOnCurve discounts the cashflows on the zero curve with an additive
// spread, using the same compounding convention as the yield quote.
func PriceOnCurve(cfs []Cashflow, c *curve.ZeroCurve, spread float64, m int) float64 {
	pv := 0.0
	for _, cf := range cfs {
		if cf.Time <= 0 {
			continue
		}
		pv += cf.Amount() * c.DiscountFactor(cf.Time, spread, m)
	}
	return pv
}

// SolveYTM root-finds the yield that reprices the dirty price. The search
// is bounded to [-50%, +100%]; a non-converged Result comes back with a
// NoConvergenceError.
func SolveYTM(dirtyPrice float64, cfs []Cashflow, m int) (solver.Result, error) {
	return SolveYTMWithOptions(dirtyPrice, cfs, m, solver.DefaultOptions(YieldFloor, YieldCeiling))
}

// SolveYTMWithOptions is SolveYTM with caller-supplied search options, for
// engines carrying configured tolerances.
func SolveYTMWithOptions(dirtyPrice float64, cfs []Cashflow, m int, opt solver.Options) (solver.Result, error) {
	if dirtyPrice <= 0 {
		return solver.Result{}, fmt.Errorf("SolveYTM: dirty price must be positive, got %.6f", dirtyPrice)
	}
	if len(cfs) == 0 {
		return solver.Result{}, fmt.Errorf("SolveYTM: no cashflows")
	}
	res := solver.Find(func(y float64) float64 {
		return PriceFromYield(cfs, y, m) - dirtyPrice
	}, opt)
	if !res.Converged {
		return res, &solver.NoConvergenceError{Result: res, Lo: opt.Lo, Hi: opt.Hi}
	}
	return res, nil
}

// GSpread is the yield pickup over the benchmark curve interpolated at the
// bond's maturity, in basis points.
func GSpread(ytm, maturityYears float64, c *curve.ZeroCurve) float64 {
	return (ytm - c.Rate(maturityYears)) * 1e4
}

// ZSpread root-finds the flat spread over every curve point that reprices
// the dirty price. Result.Value is the decimal spread; multiply by 1e4 for
// basis points.
func ZSpread(dirtyPrice float64, cfs []Cashflow, c *curve.ZeroCurve, m int) (solver.Result, error) {
	return ZSpreadWithOptions(dirtyPrice, cfs, c, m, solver.DefaultOptions(SpreadFloor, SpreadCeiling))
}

// ZSpreadWithOptions is ZSpread with caller-supplied search options.
func ZSpreadWithOptions(dirtyPrice float64, cfs []Cashflow, c *curve.ZeroCurve, m int, opt solver.Options) (solver.Result, error) {
	if dirtyPrice <= 0 {
		return solver.Result{}, fmt.Errorf("ZSpread: dirty price must be positive, got %.6f", dirtyPrice)
	}
	if len(cfs) == 0 {
		return solver.Result{}, fmt.Errorf("ZSpread: no cashflows")
	}
	res := solver.Find(func(s float64) float64 {
		return PriceOnCurve(cfs, c, s, m) - dirtyPrice
	}, opt)
	if !res.Converged {
		return res, &solver.NoConvergenceError{Result: res, Lo: opt.Lo, Hi: opt.Hi}
	}
	return res, nil
}
