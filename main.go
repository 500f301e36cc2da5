package main

import (
	"fmt"
	"time"

	"github.com/meenmo/oaslib/analytics"
	"github.com/meenmo/oaslib/bond"
	"github.com/meenmo/oaslib/config"
	"github.com/meenmo/oaslib/curve"
	"github.com/meenmo/oaslib/hullwhite"
	"github.com/meenmo/oaslib/logger"
)

func main() {
	valuation := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	crv, err := curve.NewZeroCurve("EUR", valuation,
		[]float64{0.25, 0.5, 1, 2, 3, 5, 7, 10, 20, 30},
		[]float64{0.031, 0.0315, 0.032, 0.033, 0.034, 0.036, 0.037, 0.038, 0.039, 0.0395})
	if err != nil {
		panic(err)
	}
	store := curve.NewStore()
	store.Put(crv)

	callable := &bond.Record{
		ISIN:            "XS0000000001",
		Currency:        "EUR",
		IssueDate:       time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC),
		MaturityDate:    time.Date(2031, 1, 15, 0, 0, 0, 0, time.UTC),
		CouponRate:      0.045,
		CouponFrequency: 1,
		DayCount:        bond.DCACTACT,
		Notional:        100,
		CleanPrice:      98.25,
		AccruedInterest: 0.45,
		CallSchedule: []bond.CallOption{
			{Date: time.Date(2028, 1, 15, 0, 0, 0, 0, time.UTC), Price: 100.5, Type: bond.CallEuropean},
			{Date: time.Date(2029, 1, 15, 0, 0, 0, 0, time.UTC), Price: 100.0, Type: bond.CallEuropean},
		},
	}

	log := logger.New("")
	cache := hullwhite.NewCache("", 0, log)
	engine := analytics.NewEngine(config.Default, store, cache, analytics.WithLogger(log))

	res := engine.Analyze(callable, valuation)

	fmt.Printf("ISIN:               %s\n", res.ISIN)
	fmt.Printf("YTM:                %.4f%%\n", res.YTM*100)
	fmt.Printf("G-spread:           %.1f bp\n", res.GSpreadBps)
	fmt.Printf("Z-spread:           %.1f bp\n", res.ZSpreadBps)
	fmt.Printf("Effective duration: %.3f\n", res.EffectiveDuration)
	fmt.Printf("Convexity:          %.3f\n", res.Convexity)
	fmt.Printf("OAS:                %.1f bp\n", res.OASBps)
	fmt.Printf("Enhancement:        %s\n", res.Enhancement)
}
