// Package analytics orchestrates schedule construction, yield and spread
// solving, risk measures, and OAS pricing into one record per bond.
package analytics

import (
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meenmo/oaslib/bond"
	"github.com/meenmo/oaslib/calendar"
	"github.com/meenmo/oaslib/config"
	"github.com/meenmo/oaslib/curve"
	"github.com/meenmo/oaslib/hullwhite"
	"github.com/meenmo/oaslib/marketdata"
	"github.com/meenmo/oaslib/oas"
	"github.com/meenmo/oaslib/solver"
)

// Engine computes per-bond analytics. All shared state (curve store,
// calibration cache, feeds) is read-only during a batch, so bonds can be
// processed concurrently.
type Engine struct {
	cfg      config.Config
	curves   *curve.Store
	cache    *hullwhite.Cache
	series   marketdata.SeriesFeed
	surfaces map[string]*marketdata.SwaptionSurface
	cal      calendar.CalendarID
	log      *logrus.Logger
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithSeriesFeed supplies historical yields for parameter estimation.
func WithSeriesFeed(feed marketdata.SeriesFeed) Option {
	return func(e *Engine) { e.series = feed }
}

// WithSwaptionSurface supplies a quoted vol surface for one currency.
func WithSwaptionSurface(s *marketdata.SwaptionSurface) Option {
	return func(e *Engine) { e.surfaces[s.Currency] = s }
}

// WithCalendar sets the business-day calendar for schedule adjustment.
func WithCalendar(cal calendar.CalendarID) Option {
	return func(e *Engine) { e.cal = cal }
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine builds an engine. The calibration cache is injected rather
// than ambient so concurrent runs can hold different TTLs and tests stay
// isolated; pass a memory-only cache when persistence is unwanted.
func NewEngine(cfg config.Config, curves *curve.Store, cache *hullwhite.Cache, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		curves:   curves,
		cache:    cache,
		surfaces: make(map[string]*marketdata.SwaptionSurface),
		cal:      calendar.WeekendOnly,
		log:      logrus.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = hullwhite.NewCache("", cfg.CacheTTL, e.log)
	}
	return e
}

// Analyze computes the full analytics record for one bond. It never
// returns an error: per-security failures surface as NaN measures with
// recorded reasons so a batch is never aborted by one bad security.
func (e *Engine) Analyze(b *bond.Record, valuation time.Time) *Result {
	return e.analyze(b, valuation, "")
}

func (e *Engine) analyze(b *bond.Record, valuation time.Time, runID string) *Result {
	res := newResult(b.ISIN, b.Currency, valuation, runID)
	res.CleanPrice = b.CleanPrice
	res.AccruedInterest = b.AccruedInterest
	res.DirtyPrice = b.DirtyPrice()

	cfs, err := bond.BuildSchedule(b, valuation, e.cal)
	if err != nil {
		e.log.WithError(err).WithField("isin", b.ISIN).Warn("schedule build failed")
		res.miss("schedule", err.Error())
		return res
	}
	m := b.Compounding()
	dirty := b.DirtyPrice()
	maturityYears := cfs[len(cfs)-1].Time

	ytmOpt := solver.DefaultOptions(bond.YieldFloor, bond.YieldCeiling).
		WithAccuracy(e.cfg.SolverTolerance, e.cfg.MaxSolverIterations)
	ytmRes, err := bond.SolveYTMWithOptions(dirty, cfs, m, ytmOpt)
	if err != nil {
		res.miss("ytm", err.Error())
	} else {
		res.YTM = ytmRes.Value
	}

	crv, err := e.curves.Get(b.Currency, valuation)
	if err != nil {
		e.log.WithError(err).WithField("isin", b.ISIN).Warn("curve unavailable")
		res.miss("curve", err.Error())
		return res
	}

	if !math.IsNaN(res.YTM) {
		res.GSpreadBps = bond.GSpread(res.YTM, maturityYears, crv)
	}

	zOpt := solver.DefaultOptions(bond.SpreadFloor, bond.SpreadCeiling).
		WithAccuracy(e.cfg.SolverTolerance, e.cfg.MaxSolverIterations)
	zRes, err := bond.ZSpreadWithOptions(dirty, cfs, crv, m, zOpt)
	zspread := 0.0
	if err != nil {
		res.miss("z_spread_bps", err.Error())
	} else {
		zspread = zRes.Value
		res.ZSpreadBps = zspread * 1e4
	}

	e.riskMeasures(res, cfs, crv, zspread, m)

	if b.Callable() {
		e.callableMeasures(res, b, cfs, crv, valuation)
	}

	return res
}

// riskMeasures fills the bumped-curve measures. Each failure is recorded
// independently; the others still compute.
func (e *Engine) riskMeasures(res *Result, cfs []bond.Cashflow, crv *curve.ZeroCurve, zspread float64, m int) {
	delta := e.cfg.BumpSize

	if d, err := bond.EffectiveDuration(cfs, crv, zspread, m, delta); err != nil {
		res.miss("effective_duration", err.Error())
	} else {
		res.EffectiveDuration = d
		if !math.IsNaN(res.YTM) {
			res.ModifiedDuration = bond.ModifiedDuration(d, res.YTM, m)
		}
	}

	if cv, err := bond.EffectiveConvexity(cfs, crv, zspread, m, delta); err != nil {
		res.miss("convexity", err.Error())
	} else {
		res.Convexity = cv
	}

	if sd, err := bond.SpreadDuration(cfs, crv, zspread, m, delta); err != nil {
		res.miss("spread_duration", err.Error())
	} else {
		res.SpreadDuration = sd
	}

	if krd, err := bond.KeyRateDurations(cfs, crv, zspread, m, delta); err != nil {
		res.miss("key_rate_durations", err.Error())
	} else {
		res.KeyRateDurations = krd
	}
}

// callableMeasures calibrates (or fetches) the Hull-White model and runs
// the Monte Carlo OAS computation.
func (e *Engine) callableMeasures(res *Result, b *bond.Record, cfs []bond.Cashflow, crv *curve.ZeroCurve, valuation time.Time) {
	params, err := e.cache.GetOrCalibrate(b.Currency, crv.AsOf(), func() (*hullwhite.Parameters, error) {
		var hist *marketdata.Series
		if e.series != nil {
			h, err := e.series.HistoricalSeries(b.Currency, valuation, 0)
			if err != nil {
				// Historical data is optional; estimation falls back.
				e.log.WithError(err).WithField("currency", b.Currency).Warn("historical series unavailable")
			} else {
				hist = h
			}
		}
		// Calibrations are shared per currency and date through the cache,
		// so they must not depend on which bond triggered them. Tenor 0
		// disables per-tenor scaling of the default volatility.
		model := hullwhite.NewModel(0)
		return model.Calibrate(crv, hist, e.surfaces[b.Currency])
	})
	if err != nil {
		res.miss("oas_bps", err.Error())
		return
	}
	if params.Enhanced() {
		res.Enhancement = LevelEnhanced
	}

	stubs := bond.BuildCallStubs(b, cfs, valuation)
	engine := oas.NewEngine(e.cfg.NumPaths, e.cfg.StepsPerYear, e.cfg.Seed)
	engine.Tolerance = e.cfg.SolverTolerance
	engine.MaxIter = e.cfg.MaxSolverIterations
	oasRes, err := engine.ComputeOAS(b, cfs, stubs, params)
	if err != nil {
		e.log.WithError(err).WithField("isin", b.ISIN).Warn("OAS search failed")
		res.miss("oas_bps", err.Error())
		return
	}
	res.OASBps = oasRes.OASBps
	res.OASDuration = oasRes.EffDuration
	res.OASConvexity = oasRes.EffConvexity
}

// AnalyzeBatch fans bonds out across workers. Bonds share only read-only
// state, so the unit of parallelism is one bond's analytics.
func (e *Engine) AnalyzeBatch(bonds []*bond.Record, valuation time.Time) []*Result {
	runID := uuid.NewString()
	results := make([]*Result, len(bonds))

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(bonds) {
		workers = len(bonds)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.analyze(bonds[i], valuation, runID)
			}
		}()
	}
	for i := range bonds {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	e.log.WithFields(logrus.Fields{
		"run_id": runID,
		"bonds":  len(bonds),
	}).Info("batch complete")
	return results
}
