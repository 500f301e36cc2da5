package hullwhite_test

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meenmo/oaslib/hullwhite"
)

func testParams(currency string, date time.Time) *hullwhite.Parameters {
	return &hullwhite.Parameters{
		Currency:        currency,
		CalibrationDate: date,
		CalibratedAt:    time.Now().UTC(),
		MeanReversion:   0.12,
		Sigma:           0.011,
		R0:              0.03,
		ThetaTimes:      []float64{0, 1, 2},
		ThetaValues:     []float64{0.004, 0.005, 0.006},
		Confidence:      0.5,
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	d := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := hullwhite.Key("EUR", d); got != "EUR_20260115" {
		t.Errorf("Key = %q, want EUR_20260115", got)
	}
}

func TestCache_GetWithinTTLDoesNotRecalibrate(t *testing.T) {
	t.Parallel()

	cache := hullwhite.NewCache("", time.Hour, nil)
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	var calls int32
	calibrate := func() (*hullwhite.Parameters, error) {
		atomic.AddInt32(&calls, 1)
		return testParams("EUR", date), nil
	}

	p1, err := cache.GetOrCalibrate("EUR", date, calibrate)
	if err != nil {
		t.Fatalf("first GetOrCalibrate: %v", err)
	}
	p2, err := cache.GetOrCalibrate("EUR", date, calibrate)
	if err != nil {
		t.Fatalf("second GetOrCalibrate: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calibration ran %d times, want 1", got)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Error("sequential gets returned different parameters")
	}
}

func TestCache_TTLExpiryTriggersOneRecalibration(t *testing.T) {
	t.Parallel()

	cache := hullwhite.NewCache("", 50*time.Millisecond, nil)
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	var calls int32
	calibrate := func() (*hullwhite.Parameters, error) {
		atomic.AddInt32(&calls, 1)
		p := testParams("EUR", date)
		p.CalibratedAt = time.Now().UTC()
		return p, nil
	}

	if _, err := cache.GetOrCalibrate("EUR", date, calibrate); err != nil {
		t.Fatalf("GetOrCalibrate: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	// Expired entry is a miss: exactly one recalibration.
	if _, err := cache.GetOrCalibrate("EUR", date, calibrate); err != nil {
		t.Fatalf("GetOrCalibrate after expiry: %v", err)
	}
	if _, err := cache.GetOrCalibrate("EUR", date, calibrate); err != nil {
		t.Fatalf("GetOrCalibrate after recalibration: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calibration ran %d times, want 2 (initial + one after TTL)", got)
	}
}

func TestCache_DiskRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	params := testParams("EUR", date)

	writer := hullwhite.NewCache(dir, time.Hour, nil)
	writer.Put("EUR", date, params)

	// A fresh cache over the same directory reads the entry through.
	reader := hullwhite.NewCache(dir, time.Hour, nil)
	got, ok := reader.Get("EUR", date)
	if !ok {
		t.Fatal("disk entry not found by fresh cache")
	}
	if got.MeanReversion != params.MeanReversion || got.Sigma != params.Sigma {
		t.Errorf("round-tripped params differ: %+v vs %+v", got, params)
	}
	if !reflect.DeepEqual(got.ThetaValues, params.ThetaValues) {
		t.Error("theta grid lost in persistence")
	}
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	cache := hullwhite.NewCache(dir, time.Hour, nil)
	cache.Put("EUR", date, testParams("EUR", date))
	cache.Invalidate("EUR", date)

	if _, ok := cache.Get("EUR", date); ok {
		t.Error("entry survived Invalidate")
	}
	// Disk copy is gone too.
	fresh := hullwhite.NewCache(dir, time.Hour, nil)
	if _, ok := fresh.Get("EUR", date); ok {
		t.Error("disk entry survived Invalidate")
	}
}

func TestCache_MemoryOnlyModeMatchesDiskMode(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	calibrate := func() (*hullwhite.Parameters, error) {
		return testParams("EUR", date), nil
	}

	mem := hullwhite.NewCache("", time.Hour, nil)
	disk := hullwhite.NewCache(t.TempDir(), time.Hour, nil)

	p1, err := mem.GetOrCalibrate("EUR", date, calibrate)
	if err != nil {
		t.Fatalf("memory-only: %v", err)
	}
	p2, err := disk.GetOrCalibrate("EUR", date, calibrate)
	if err != nil {
		t.Fatalf("disk-backed: %v", err)
	}
	if p1.MeanReversion != p2.MeanReversion || p1.Sigma != p2.Sigma ||
		math.Abs(p1.R0-p2.R0) > 0 {
		t.Error("cache mode changed the parameters")
	}
}

func TestCache_DiskFailureDegradesToMemoryUnderContention(t *testing.T) {
	t.Parallel()

	// A cache directory nested under a regular file can never be created,
	// so every write fails and the cache flips to memory-only. Concurrent
	// callers hitting that transition must still see their own entries.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cache := hullwhite.NewCache(filepath.Join(blocker, "cache"), time.Hour, nil)

	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	currencies := []string{"EUR", "USD", "GBP", "JPY"}

	var wg sync.WaitGroup
	wg.Add(len(currencies))
	for _, ccy := range currencies {
		ccy := ccy
		go func() {
			defer wg.Done()
			cache.Put(ccy, date, testParams(ccy, date))
			if _, ok := cache.Get(ccy, date); !ok {
				t.Errorf("%s: entry lost after disk degradation", ccy)
			}
		}()
	}
	wg.Wait()

	for _, ccy := range currencies {
		if _, ok := cache.Get(ccy, date); !ok {
			t.Errorf("%s: entry missing from memory", ccy)
		}
	}
}

func TestCache_ConcurrentCallersOneCalibration(t *testing.T) {
	t.Parallel()

	cache := hullwhite.NewCache("", time.Hour, nil)
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	var calls int32
	calibrate := func() (*hullwhite.Parameters, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond) // widen the race window
		return testParams("EUR", date), nil
	}

	const workers = 16
	results := make([]*hullwhite.Parameters, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			p, err := cache.GetOrCalibrate("EUR", date, calibrate)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = p
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calibration ran %d times under contention, want 1", got)
	}
	for i := 1; i < workers; i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Fatalf("worker %d saw different parameters", i)
		}
	}
}
