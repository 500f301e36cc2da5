package analytics_test

import (
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/oaslib/analytics"
	"github.com/meenmo/oaslib/bond"
	"github.com/meenmo/oaslib/config"
	"github.com/meenmo/oaslib/curve"
	"github.com/meenmo/oaslib/hullwhite"
	"github.com/meenmo/oaslib/marketdata"
)

var valuation = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func flatStore(t *testing.T, currency string, rate float64) *curve.Store {
	t.Helper()
	terms := []float64{0.25, 1, 2, 5, 10, 30}
	rates := make([]float64, len(terms))
	for i := range rates {
		rates[i] = rate
	}
	crv, err := curve.NewZeroCurve(currency, valuation, terms, rates)
	if err != nil {
		t.Fatalf("NewZeroCurve: %v", err)
	}
	store := curve.NewStore()
	store.Put(crv)
	return store
}

func bulletBond(isin string) *bond.Record {
	return &bond.Record{
		ISIN:            isin,
		Currency:        "EUR",
		IssueDate:       time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC),
		MaturityDate:    time.Date(2031, 1, 15, 0, 0, 0, 0, time.UTC),
		CouponRate:      0.05,
		CouponFrequency: 1,
		DayCount:        bond.DCACTACT,
		CleanPrice:      104.0,
		AccruedInterest: 0.5,
	}
}

func callableBond(isin string) *bond.Record {
	b := bulletBond(isin)
	b.CallSchedule = []bond.CallOption{
		{Date: time.Date(2028, 1, 15, 0, 0, 0, 0, time.UTC), Price: 100, Type: bond.CallEuropean},
	}
	return b
}

func newTestEngine(t *testing.T, store *curve.Store, opts ...analytics.Option) *analytics.Engine {
	t.Helper()
	cfg := config.Default
	cfg.Workers = 2
	cache := hullwhite.NewCache("", cfg.CacheTTL, silentLogger())
	opts = append(opts, analytics.WithLogger(silentLogger()))
	return analytics.NewEngine(cfg, store, cache, opts...)
}

func TestAnalyze_BulletBond(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, flatStore(t, "EUR", 0.04))
	res := engine.Analyze(bulletBond("XS1000000001"), valuation)

	if len(res.Reasons) != 0 {
		t.Fatalf("unexpected failures: %v", res.Reasons)
	}
	if res.DirtyPrice != 104.5 {
		t.Errorf("dirty = %v, want 104.5", res.DirtyPrice)
	}
	// Priced slightly above the 4% flat curve value, so the yield sits a
	// touch under the coupon and the spreads are small.
	if res.YTM < 0.03 || res.YTM > 0.05 {
		t.Errorf("YTM = %v, want near 4%%", res.YTM)
	}
	if math.IsNaN(res.GSpreadBps) || math.Abs(res.GSpreadBps) > 100 {
		t.Errorf("G-spread = %v bp, want small", res.GSpreadBps)
	}
	if math.IsNaN(res.ZSpreadBps) || math.Abs(res.ZSpreadBps) > 100 {
		t.Errorf("Z-spread = %v bp, want small", res.ZSpreadBps)
	}
	if res.EffectiveDuration < 3.5 || res.EffectiveDuration > 5.0 {
		t.Errorf("effective duration = %v, want ~4.3 for a 5y bullet", res.EffectiveDuration)
	}
	if res.ModifiedDuration > res.EffectiveDuration {
		t.Errorf("modified %v > effective %v", res.ModifiedDuration, res.EffectiveDuration)
	}
	if res.Convexity <= 0 {
		t.Errorf("convexity = %v, want > 0", res.Convexity)
	}
	if len(res.KeyRateDurations) == 0 {
		t.Error("key rate durations missing")
	}
	// Not callable: OAS stays NaN without being reported as a failure.
	if !math.IsNaN(res.OASBps) {
		t.Errorf("OAS = %v for a non-callable bond, want NaN", res.OASBps)
	}
	if res.Enhancement != analytics.LevelStandard {
		t.Errorf("enhancement = %v, want standard", res.Enhancement)
	}
}

func TestAnalyze_CurveUnavailable(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, curve.NewStore())
	res := engine.Analyze(bulletBond("XS1000000002"), valuation)

	if math.IsNaN(res.YTM) {
		t.Error("YTM should compute without a curve")
	}
	if !math.IsNaN(res.GSpreadBps) || !math.IsNaN(res.EffectiveDuration) {
		t.Error("curve-dependent measures should be NaN")
	}
	if _, ok := res.Reasons["curve"]; !ok {
		t.Errorf("missing curve reason, got %v", res.Reasons)
	}
}

func TestAnalyzeBatch_PartialFailure(t *testing.T) {
	t.Parallel()

	bad := bulletBond("XS1000000BAD")
	bad.MaturityDate = bad.IssueDate.AddDate(-1, 0, 0)

	engine := newTestEngine(t, flatStore(t, "EUR", 0.04))
	results := engine.AnalyzeBatch([]*bond.Record{bulletBond("XS1000000003"), bad}, valuation)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	good, broken := results[0], results[1]
	if len(good.Reasons) != 0 {
		t.Errorf("good bond failed: %v", good.Reasons)
	}
	if _, ok := broken.Reasons["schedule"]; !ok {
		t.Errorf("bad bond missing schedule reason, got %v", broken.Reasons)
	}
	if !math.IsNaN(broken.YTM) || !math.IsNaN(broken.EffectiveDuration) {
		t.Error("bad bond measures should be NaN")
	}
	if good.RunID == "" || good.RunID != broken.RunID {
		t.Errorf("run IDs differ within a batch: %q vs %q", good.RunID, broken.RunID)
	}
}

func TestAnalyze_CallableProducesOAS(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, flatStore(t, "EUR", 0.04))
	res := engine.Analyze(callableBond("XS1000000004"), valuation)

	if reason, ok := res.Reasons["oas_bps"]; ok {
		t.Fatalf("OAS failed: %s", reason)
	}
	if math.IsNaN(res.OASBps) {
		t.Fatal("OAS is NaN for a callable bond")
	}
	if math.Abs(res.OASBps) > 1000 {
		t.Errorf("OAS = %v bp, outside the search band", res.OASBps)
	}
	if math.IsNaN(res.OASDuration) || math.IsNaN(res.OASConvexity) {
		t.Error("OAS duration/convexity missing")
	}
	// No historical series and no vol surface: defaults throughout.
	if res.Enhancement != analytics.LevelStandard {
		t.Errorf("enhancement = %v, want standard", res.Enhancement)
	}
}

func TestAnalyze_OASIndependentOfProcessingOrder(t *testing.T) {
	t.Parallel()

	longCallable := func() *bond.Record {
		b := bulletBond("XS1000000L20")
		b.MaturityDate = time.Date(2046, 1, 15, 0, 0, 0, 0, time.UTC)
		b.CallSchedule = []bond.CallOption{
			{Date: time.Date(2036, 1, 15, 0, 0, 0, 0, time.UTC), Price: 100, Type: bond.CallEuropean},
		}
		return b
	}
	shortCallable := func() *bond.Record {
		b := bulletBond("XS1000000S02")
		b.MaturityDate = time.Date(2028, 1, 15, 0, 0, 0, 0, time.UTC)
		b.CallSchedule = []bond.CallOption{
			{Date: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), Price: 100, Type: bond.CallEuropean},
		}
		return b
	}

	// The long bond analyzed alone versus analyzed after a short bond has
	// warmed the calibration cache. Calibrations are keyed by currency and
	// date, so which bond triggered them must not matter.
	alone := newTestEngine(t, flatStore(t, "EUR", 0.04))
	wantOAS := alone.Analyze(longCallable(), valuation).OASBps

	warmed := newTestEngine(t, flatStore(t, "EUR", 0.04))
	warmed.Analyze(shortCallable(), valuation)
	gotOAS := warmed.Analyze(longCallable(), valuation).OASBps

	if math.IsNaN(wantOAS) || math.IsNaN(gotOAS) {
		t.Fatalf("OAS is NaN: alone=%v warmed=%v", wantOAS, gotOAS)
	}
	if wantOAS != gotOAS {
		t.Errorf("OAS depends on processing order: alone=%v after short bond=%v", wantOAS, gotOAS)
	}
}

func TestAnalyze_SolverConfigReachesTheSearches(t *testing.T) {
	t.Parallel()

	cfg := config.Default
	cfg.Workers = 1
	cfg.SolverTolerance = 1e-12
	cfg.MaxSolverIterations = 1
	cache := hullwhite.NewCache("", cfg.CacheTTL, silentLogger())
	engine := analytics.NewEngine(cfg, flatStore(t, "EUR", 0.04), cache,
		analytics.WithLogger(silentLogger()))

	res := engine.Analyze(bulletBond("XS1000000008"), valuation)

	// One iteration at 1e-12 tolerance cannot converge, so the configured
	// limits must have reached the yield and spread searches.
	if _, ok := res.Reasons["ytm"]; !ok {
		t.Errorf("YTM search ignored the configured iteration limit: %v", res.Reasons)
	}
	if _, ok := res.Reasons["z_spread_bps"]; !ok {
		t.Errorf("Z-spread search ignored the configured iteration limit: %v", res.Reasons)
	}
}

// countingFeed counts calibration attempts: the model asks the feed for
// history exactly once per calibration.
type countingFeed struct {
	calls int32
}

func (f *countingFeed) HistoricalSeries(currency string, upTo time.Time, maxObs int) (*marketdata.Series, error) {
	atomic.AddInt32(&f.calls, 1)
	return &marketdata.Series{Currency: currency}, nil
}

func TestAnalyzeBatch_SharedCalibration(t *testing.T) {
	t.Parallel()

	feed := &countingFeed{}
	engine := newTestEngine(t, flatStore(t, "EUR", 0.04), analytics.WithSeriesFeed(feed))

	bonds := []*bond.Record{
		callableBond("XS1000000005"),
		callableBond("XS1000000006"),
		callableBond("XS1000000007"),
	}
	results := engine.AnalyzeBatch(bonds, valuation)

	for _, res := range results {
		if math.IsNaN(res.OASBps) {
			t.Fatalf("%s: OAS is NaN: %v", res.ISIN, res.Reasons)
		}
	}
	if got := atomic.LoadInt32(&feed.calls); got != 1 {
		t.Errorf("calibrated %d times for one currency and date, want 1", got)
	}
	// Same currency and date: identical OAS inputs give identical OAS.
	if results[0].OASBps != results[1].OASBps {
		t.Errorf("identical bonds got different OAS: %v vs %v", results[0].OASBps, results[1].OASBps)
	}
}
