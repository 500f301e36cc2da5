package hullwhite

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/oaslib/curve"
	"github.com/meenmo/oaslib/marketdata"
)

// State tracks the model's calibration lifecycle.
type State int

const (
	Uninitialized State = iota
	Calibrating
	Calibrated
	Stale
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Calibrating:
		return "calibrating"
	case Calibrated:
		return "calibrated"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// thetaStep is the sampling interval for the drift grid, in years.
const thetaStep = 1.0 / 12.0

// Model owns the estimator chains and the last completed calibration.
// Calibrate is cheap enough to run per (currency, date); the cache in this
// package avoids repeating it per bond.
type Model struct {
	meanRevChain []MeanReversionEstimator
	volChain     []VolatilityEstimator

	state  State
	params *Parameters
}

// NewModel wires the default estimator chains: swaption-calibrated, then
// historical, then market-convention defaults. tenorYears scales the
// default vol for the bond population being priced; zero disables scaling.
func NewModel(tenorYears float64) *Model {
	return &Model{
		meanRevChain: []MeanReversionEstimator{
			HistoricalMeanReversion{},
			DefaultMeanReversionEstimator{},
		},
		volChain: []VolatilityEstimator{
			SwaptionVolatility{},
			HistoricalVolatility{},
			DefaultVolatility{TenorYears: tenorYears},
		},
		state: Uninitialized,
	}
}

// NewModelWithChains injects custom estimator chains. Each chain must end
// with an estimator that always succeeds.
func NewModelWithChains(meanRev []MeanReversionEstimator, vol []VolatilityEstimator) *Model {
	return &Model{meanRevChain: meanRev, volChain: vol, state: Uninitialized}
}

func (m *Model) State() State        { return m.state }
func (m *Model) Params() *Parameters { return m.params }

// MarkStale flags the calibration for renewal on next use, e.g. when the
// curve date moved or the cache TTL lapsed.
func (m *Model) MarkStale() {
	if m.state == Calibrated {
		m.state = Stale
	}
}

// Calibrate fits the model to the forward curve and whatever historical or
// swaption data is available. Theta fitting always runs; parameter
// estimation walks the chains, falling back silently per the documented
// priority (swaption -> historical -> default). Insufficient data is never
// an error here.
func (m *Model) Calibrate(crv *curve.ZeroCurve, hist *marketdata.Series, surface *marketdata.SwaptionSurface) (*Parameters, error) {
	if crv == nil {
		return nil, fmt.Errorf("Calibrate: curve is required")
	}
	m.state = Calibrating

	aEst := m.estimateMeanReversion(hist)
	volEst := m.estimateVolatility(hist, surface, aEst.Value)

	times, values := calibrateTheta(crv, aEst.Value, volEst.Value)

	sources := []string{"curve:" + crv.Currency() + "@" + crv.AsOf().Format("2006-01-02")}
	if aEst.Provenance == ProvenanceHistorical || volEst.Provenance == ProvenanceHistorical {
		sources = append(sources, "historical")
	}
	if volEst.Provenance == ProvenanceSwaption {
		sources = append(sources, "swaption")
	}

	p := &Parameters{
		Currency:            crv.Currency(),
		CalibrationDate:     crv.AsOf(),
		CalibratedAt:        time.Now().UTC(),
		MeanReversion:       aEst.Value,
		Sigma:               volEst.Value,
		R0:                  crv.Forward(0),
		ThetaTimes:          times,
		ThetaValues:         values,
		MeanReversionSource: aEst.Provenance,
		VolatilitySource:    volEst.Provenance,
		Confidence:          math.Min(aEst.Confidence, volEst.Confidence),
		DataSources:         sources,
	}
	m.params = p
	m.state = Calibrated
	return p, nil
}

func (m *Model) estimateMeanReversion(hist *marketdata.Series) Estimate {
	for _, est := range m.meanRevChain {
		if e, ok := est.EstimateMeanReversion(hist); ok {
			return e
		}
	}
	return Estimate{Value: DefaultMeanReversion, Confidence: 0.3, Provenance: ProvenanceDefault}
}

func (m *Model) estimateVolatility(hist *marketdata.Series, surface *marketdata.SwaptionSurface, a float64) Estimate {
	for _, est := range m.volChain {
		if e, ok := est.EstimateVolatility(hist, surface, a); ok {
			return e
		}
	}
	return Estimate{Value: DefaultSigma, Confidence: 0.2, Provenance: ProvenanceDefault}
}

// calibrateTheta fits the drift term to the current forward curve:
//
//	theta(t) = df(0,t)/dt + a*f(0,t) + sigma^2/(2a) * (1 - exp(-2at))
//
// sampled monthly out to the curve's last pillar.
func calibrateTheta(crv *curve.ZeroCurve, a, sigma float64) (times, values []float64) {
	horizon := crv.MaxTerm()
	n := int(horizon/thetaStep) + 1
	times = make([]float64, 0, n+1)
	values = make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) * thetaStep
		if t > horizon {
			t = horizon
		}
		f := crv.Forward(t)
		slope := crv.ForwardSlope(t)
		variance := sigma * sigma / (2.0 * a) * (1.0 - math.Exp(-2.0*a*t))
		times = append(times, t)
		values = append(values, slope+a*f+variance)
		if t >= horizon {
			break
		}
	}
	return times, values
}
