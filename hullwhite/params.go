// Package hullwhite implements the one-factor short-rate model
// dr = (theta(t) - a*r) dt + sigma dW: drift calibration to the forward
// curve, parameter estimation from historical and swaption data, and the
// calibration cache shared across bonds.
package hullwhite

import (
	"time"
)

// Provenance tags where a calibrated parameter came from.
type Provenance string

const (
	ProvenanceSwaption   Provenance = "swaption"
	ProvenanceHistorical Provenance = "historical"
	ProvenanceDefault    Provenance = "default"
)

// Market-convention fallbacks.
const (
	DefaultMeanReversion = 0.10
	DefaultSigma         = 0.015
	MeanReversionFloor   = 0.01
	MeanReversionCeiling = 0.50
)

// Parameters is one completed calibration. Instances are immutable once
// built; recalibration supersedes rather than mutates.
type Parameters struct {
	Currency        string    `json:"currency"`
	CalibrationDate time.Time `json:"calibration_date"`
	CalibratedAt    time.Time `json:"calibrated_at"`

	MeanReversion float64 `json:"mean_reversion"`
	Sigma         float64 `json:"sigma"`

	// R0 is the instantaneous forward rate at t=0 on the calibration
	// curve, used as the simulation's starting short rate.
	R0 float64 `json:"r0"`

	// Theta is the deterministic drift sampled on ThetaTimes.
	ThetaTimes  []float64 `json:"theta_times"`
	ThetaValues []float64 `json:"theta_values"`

	MeanReversionSource Provenance `json:"mean_reversion_source"`
	VolatilitySource    Provenance `json:"volatility_source"`
	Confidence          float64    `json:"confidence"`
	DataSources         []string   `json:"data_sources"`
}

// Enhanced reports whether any parameter came from market data rather
// than the hardcoded defaults. This is a provenance flag only; the
// pricing algorithm is identical either way.
func (p *Parameters) Enhanced() bool {
	return p.MeanReversionSource != ProvenanceDefault || p.VolatilitySource != ProvenanceDefault
}

// Theta returns theta(t) by linear interpolation on the sampled grid,
// clamped at the ends.
func (p *Parameters) Theta(t float64) float64 {
	n := len(p.ThetaTimes)
	if n == 0 {
		return 0
	}
	if t <= p.ThetaTimes[0] {
		return p.ThetaValues[0]
	}
	if t >= p.ThetaTimes[n-1] {
		return p.ThetaValues[n-1]
	}
	for i := 1; i < n; i++ {
		if p.ThetaTimes[i] >= t {
			t1, t2 := p.ThetaTimes[i-1], p.ThetaTimes[i]
			v1, v2 := p.ThetaValues[i-1], p.ThetaValues[i]
			return v1 + (v2-v1)*(t-t1)/(t2-t1)
		}
	}
	return p.ThetaValues[n-1]
}
