package hullwhite

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/oaslib/marketdata"
	"github.com/meenmo/oaslib/utils"
)

// Estimate is one estimator's answer: the fitted value, how much weight
// the calibration should give it, and where it came from.
type Estimate struct {
	Value      float64
	Confidence float64
	Provenance Provenance
}

// MeanReversionEstimator produces the speed a from available data.
// Estimators report ok=false to pass to the next strategy in the chain;
// the chain always terminates at the default.
type MeanReversionEstimator interface {
	EstimateMeanReversion(hist *marketdata.Series) (Estimate, bool)
}

// VolatilityEstimator produces sigma. The already-chosen mean reversion is
// supplied because the swaption fit needs it.
type VolatilityEstimator interface {
	EstimateVolatility(hist *marketdata.Series, surface *marketdata.SwaptionSurface, meanReversion float64) (Estimate, bool)
}

// minHistObs is the observation floor below which historical estimation
// falls through to the default.
const minHistObs = 100

// blendObs is the sample size at which the historical fit gets full
// weight; below it the fit is blended toward the default.
const blendObs = 500

// tradingDaysPerYear annualizes daily statistics.
const tradingDaysPerYear = 252.0

// HistoricalMeanReversion fits an Ornstein-Uhlenbeck discrete regression
// dr(t) = a*theta*dt - a*dt*r(t) + eps by OLS on (r_t, dr_t).
type HistoricalMeanReversion struct{}

func (HistoricalMeanReversion) EstimateMeanReversion(hist *marketdata.Series) (Estimate, bool) {
	n := hist.Len()
	if n < minHistObs {
		return Estimate{}, false
	}

	x := hist.Rates[:n-1]
	y := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		y[i] = hist.Rates[i+1] - hist.Rates[i]
	}

	_, slope := stat.LinearRegression(x, y, nil, false)
	dt := 1.0 / tradingDaysPerYear
	fitted := -slope / dt

	// Small samples get pulled toward the market-convention default.
	a := fitted
	if n < blendObs {
		w := float64(n) / float64(blendObs)
		a = w*fitted + (1.0-w)*DefaultMeanReversion
	}
	a = utils.Clamp(a, MeanReversionFloor, MeanReversionCeiling)

	conf := math.Min(1.0, float64(n)/float64(blendObs))
	return Estimate{Value: a, Confidence: conf, Provenance: ProvenanceHistorical}, true
}

// DefaultMeanReversionEstimator terminates the chain with the 0.10
// market-convention value.
type DefaultMeanReversionEstimator struct{}

func (DefaultMeanReversionEstimator) EstimateMeanReversion(*marketdata.Series) (Estimate, bool) {
	return Estimate{Value: DefaultMeanReversion, Confidence: 0.3, Provenance: ProvenanceDefault}, true
}

// SwaptionVolatility calibrates sigma by least squares against the quoted
// normal-vol grid. Under Hull-White the model-implied normal vol of a
// swaption scales linearly in sigma through a shape factor
//
//	phi(T0, tau) = (1-exp(-a*tau))/(a*tau) * sqrt((1-exp(-2a*T0))/(2a*T0))
//
// so the least-squares sigma is sum(phi*v)/sum(phi^2) over the grid.
type SwaptionVolatility struct{}

func (SwaptionVolatility) EstimateVolatility(_ *marketdata.Series, surface *marketdata.SwaptionSurface, a float64) (Estimate, bool) {
	if surface.Empty() || a <= 0 {
		return Estimate{}, false
	}
	num, den := 0.0, 0.0
	used := 0
	for _, q := range surface.Quotes {
		if q.OptionTenor <= 0 || q.SwapTenor <= 0 || q.NormalVol <= 0 {
			continue
		}
		phi := normalVolShape(a, q.OptionTenor, q.SwapTenor)
		num += phi * q.NormalVol
		den += phi * phi
		used++
	}
	if used == 0 || den == 0 {
		return Estimate{}, false
	}
	sigma := num / den
	if sigma <= 0 {
		return Estimate{}, false
	}
	return Estimate{Value: sigma, Confidence: 0.9, Provenance: ProvenanceSwaption}, true
}

func normalVolShape(a, optionTenor, swapTenor float64) float64 {
	b := (1.0 - math.Exp(-a*swapTenor)) / (a * swapTenor)
	v := math.Sqrt((1.0 - math.Exp(-2.0*a*optionTenor)) / (2.0 * a * optionTenor))
	return b * v
}

// HistoricalVolatility annualizes the standard deviation of daily
// log-yield changes.
type HistoricalVolatility struct{}

func (HistoricalVolatility) EstimateVolatility(hist *marketdata.Series, _ *marketdata.SwaptionSurface, _ float64) (Estimate, bool) {
	n := hist.Len()
	if n < minHistObs {
		return Estimate{}, false
	}

	changes := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev, cur := hist.Rates[i-1], hist.Rates[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		changes = append(changes, math.Log(cur/prev))
	}
	if len(changes) < minHistObs-1 {
		return Estimate{}, false
	}

	daily := stat.StdDev(changes, nil)
	if daily <= 0 || math.IsNaN(daily) {
		return Estimate{}, false
	}
	sigma := daily * math.Sqrt(tradingDaysPerYear)
	if sigma <= 0 {
		return Estimate{}, false
	}

	conf := math.Min(1.0, float64(n)/float64(blendObs))
	return Estimate{Value: sigma, Confidence: conf, Provenance: ProvenanceHistorical}, true
}

// DefaultVolatility terminates the chain at 0.015, optionally tenor-scaled
// by the bond's remaining life: short tenors damp it, long tenors widen it.
type DefaultVolatility struct {
	// TenorYears scales the default when positive: <3Y x0.8, >10Y x1.2.
	TenorYears float64
}

func (d DefaultVolatility) EstimateVolatility(*marketdata.Series, *marketdata.SwaptionSurface, float64) (Estimate, bool) {
	sigma := DefaultSigma
	switch {
	case d.TenorYears > 0 && d.TenorYears < 3:
		sigma *= 0.8
	case d.TenorYears > 10:
		sigma *= 1.2
	}
	return Estimate{Value: sigma, Confidence: 0.2, Provenance: ProvenanceDefault}, true
}
