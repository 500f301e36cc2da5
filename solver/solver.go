// Package solver provides the bounded root finder shared by the yield,
// spread, and OAS searches.
package solver

import (
	"fmt"
	"math"
)

// Result reports the outcome of a root search. Callers inspect Converged
// rather than receiving convergence failures as panics, so batch drivers
// can aggregate failure statistics.
type Result struct {
	Converged    bool
	Value        float64
	Iterations   int
	LastResidual float64
}

// NoConvergenceError wraps a failed Result as an error for callers that
// want one.
type NoConvergenceError struct {
	Result Result
	Lo, Hi float64
}

func (e *NoConvergenceError) Error() string {
	return fmt.Sprintf("root finder did not converge after %d iterations (residual %.3e, bounds [%.4f, %.4f])",
		e.Result.Iterations, e.Result.LastResidual, e.Lo, e.Hi)
}

// Options bounds the search. Tolerance applies to |f(x)|.
type Options struct {
	Lo, Hi    float64
	Tolerance float64
	MaxIter   int
}

// DefaultOptions matches the engine-wide solver contract: price tolerance
// 1e-8, at most 100 iterations.
func DefaultOptions(lo, hi float64) Options {
	return Options{Lo: lo, Hi: hi, Tolerance: 1e-8, MaxIter: 100}
}

// WithAccuracy overrides the tolerance and iteration limit where positive,
// keeping the bounds. Non-positive values leave the defaults in place.
func (o Options) WithAccuracy(tolerance float64, maxIter int) Options {
	if tolerance > 0 {
		o.Tolerance = tolerance
	}
	if maxIter > 0 {
		o.MaxIter = maxIter
	}
	return o
}

// Find locates x in [Lo, Hi] with f(x) = 0 using a Newton/bisection hybrid:
// Newton steps with a numerical derivative while they stay inside the
// bracket, falling back to bisection whenever a step leaves it or the
// derivative degenerates. The bracket is maintained throughout, so the
// search cannot diverge.
func Find(f func(float64) float64, opt Options) Result {
	lo, hi := opt.Lo, opt.Hi
	flo, fhi := f(lo), f(hi)

	if math.Abs(flo) < opt.Tolerance {
		return Result{Converged: true, Value: lo, Iterations: 0, LastResidual: flo}
	}
	if math.Abs(fhi) < opt.Tolerance {
		return Result{Converged: true, Value: hi, Iterations: 0, LastResidual: fhi}
	}
	if flo*fhi > 0 {
		// No sign change: the root is outside the bounds.
		res := flo
		if math.Abs(fhi) < math.Abs(flo) {
			res = fhi
		}
		return Result{Converged: false, Value: math.NaN(), Iterations: 0, LastResidual: res}
	}

	x := 0.5 * (lo + hi)
	fx := f(x)
	for iter := 1; iter <= opt.MaxIter; iter++ {
		if math.Abs(fx) < opt.Tolerance {
			return Result{Converged: true, Value: x, Iterations: iter, LastResidual: fx}
		}

		// Maintain the bracket.
		if flo*fx < 0 {
			hi, fhi = x, fx
		} else {
			lo, flo = x, fx
		}

		// Newton step with a one-sided numerical derivative.
		h := 1e-7 * math.Max(1.0, math.Abs(x))
		deriv := (f(x+h) - fx) / h
		var next float64
		if math.Abs(deriv) > 1e-15 {
			next = x - fx/deriv
		}
		if math.Abs(deriv) <= 1e-15 || next <= lo || next >= hi {
			next = 0.5 * (lo + hi)
		}

		x = next
		fx = f(x)
	}

	return Result{Converged: false, Value: x, Iterations: opt.MaxIter, LastResidual: fx}
}
