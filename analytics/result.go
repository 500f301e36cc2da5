package analytics

import (
	"encoding/json"
	"math"
	"time"
)

// EnhancementLevel tags where the Hull-White parameters came from. It is
// provenance only; the pricing algorithm is the same either way.
type EnhancementLevel string

const (
	LevelStandard EnhancementLevel = "STANDARD"
	LevelEnhanced EnhancementLevel = "ENHANCED"
)

// Result is the flat per-bond analytics record handed to the reporting
// layer. Missing measures are NaN with the reason recorded, so data-quality
// gaps stay visible downstream instead of rows silently dropping.
type Result struct {
	ISIN          string    `json:"isin"`
	Currency      string    `json:"currency"`
	ValuationDate time.Time `json:"valuation_date"`
	RunID         string    `json:"run_id,omitempty"`

	CleanPrice      float64 `json:"clean_price"`
	AccruedInterest float64 `json:"accrued_interest"`
	DirtyPrice      float64 `json:"dirty_price"`

	YTM               float64            `json:"ytm"`
	GSpreadBps        float64            `json:"g_spread_bps"`
	ZSpreadBps        float64            `json:"z_spread_bps"`
	EffectiveDuration float64            `json:"effective_duration"`
	ModifiedDuration  float64            `json:"modified_duration"`
	Convexity         float64            `json:"convexity"`
	SpreadDuration    float64            `json:"spread_duration"`
	KeyRateDurations  map[string]float64 `json:"key_rate_durations,omitempty"`

	OASBps       float64 `json:"oas_bps"`
	OASDuration  float64 `json:"oas_duration"`
	OASConvexity float64 `json:"oas_convexity"`

	Enhancement EnhancementLevel `json:"enhancement_level"`

	// Reasons records why a measure is missing, keyed by field name.
	Reasons map[string]string `json:"reasons,omitempty"`
}

func newResult(isin, currency string, valuation time.Time, runID string) *Result {
	nan := math.NaN()
	return &Result{
		ISIN:              isin,
		Currency:          currency,
		ValuationDate:     valuation,
		RunID:             runID,
		YTM:               nan,
		GSpreadBps:        nan,
		ZSpreadBps:        nan,
		EffectiveDuration: nan,
		ModifiedDuration:  nan,
		Convexity:         nan,
		SpreadDuration:    nan,
		OASBps:            nan,
		OASDuration:       nan,
		OASConvexity:      nan,
		Enhancement:       LevelStandard,
		Reasons:           make(map[string]string),
	}
}

func (r *Result) miss(field, reason string) {
	r.Reasons[field] = reason
}

// MarshalJSON renders missing measures as null; NaN is not valid JSON.
func (r *Result) MarshalJSON() ([]byte, error) {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		ISIN          string    `json:"isin"`
		Currency      string    `json:"currency"`
		ValuationDate time.Time `json:"valuation_date"`
		RunID         string    `json:"run_id,omitempty"`

		CleanPrice      float64 `json:"clean_price"`
		AccruedInterest float64 `json:"accrued_interest"`
		DirtyPrice      float64 `json:"dirty_price"`

		YTM               *float64           `json:"ytm"`
		GSpreadBps        *float64           `json:"g_spread_bps"`
		ZSpreadBps        *float64           `json:"z_spread_bps"`
		EffectiveDuration *float64           `json:"effective_duration"`
		ModifiedDuration  *float64           `json:"modified_duration"`
		Convexity         *float64           `json:"convexity"`
		SpreadDuration    *float64           `json:"spread_duration"`
		KeyRateDurations  map[string]float64 `json:"key_rate_durations,omitempty"`

		OASBps       *float64 `json:"oas_bps"`
		OASDuration  *float64 `json:"oas_duration"`
		OASConvexity *float64 `json:"oas_convexity"`

		Enhancement EnhancementLevel  `json:"enhancement_level"`
		Reasons     map[string]string `json:"reasons,omitempty"`
	}{
		r.ISIN, r.Currency, r.ValuationDate, r.RunID,
		r.CleanPrice, r.AccruedInterest, r.DirtyPrice,
		opt(r.YTM), opt(r.GSpreadBps), opt(r.ZSpreadBps),
		opt(r.EffectiveDuration), opt(r.ModifiedDuration), opt(r.Convexity), opt(r.SpreadDuration),
		r.KeyRateDurations,
		opt(r.OASBps), opt(r.OASDuration), opt(r.OASConvexity),
		r.Enhancement, r.Reasons,
	})
}
