// Command bondcalc computes bond analytics from a JSON request on stdin
// (or a file) and writes the analytics record as JSON to stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/meenmo/oaslib/analytics"
	"github.com/meenmo/oaslib/bond"
	"github.com/meenmo/oaslib/config"
	"github.com/meenmo/oaslib/curve"
	"github.com/meenmo/oaslib/hullwhite"
	"github.com/meenmo/oaslib/logger"
)

type request struct {
	ValuationDate string     `json:"valuation_date"`
	Curve         curveJSON  `json:"curve"`
	Bonds         []bondJSON `json:"bonds"`
	CacheDir      string     `json:"cache_dir,omitempty"`
}

type curveJSON struct {
	Currency string    `json:"currency"`
	AsOf     string    `json:"as_of"`
	Terms    []float64 `json:"terms"`
	Rates    []float64 `json:"rates"`
}

type bondJSON struct {
	ISIN            string     `json:"isin"`
	Currency        string     `json:"currency"`
	IssueDate       string     `json:"issue_date"`
	MaturityDate    string     `json:"maturity_date"`
	CouponRate      float64    `json:"coupon_rate"`
	CouponFrequency int        `json:"coupon_frequency"`
	DayCount        string     `json:"day_count"`
	Notional        float64    `json:"notional"`
	CleanPrice      float64    `json:"clean_price"`
	AccruedInterest float64    `json:"accrued_interest"`
	Calls           []callJSON `json:"calls,omitempty"`
}

type callJSON struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
	Type  string  `json:"type"`
}

func main() {
	inputPath := flag.String("input", "", "JSON input path (reads stdin if omitted)")
	configPath := flag.String("config", "", "YAML config path (optional)")
	flag.Parse()

	if err := run(*inputPath, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bondcalc: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, configPath string) error {
	var raw []byte
	var err error
	if inputPath != "" {
		raw, err = os.ReadFile(inputPath)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	cfg := config.Default
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if req.CacheDir != "" {
		cfg.CacheDir = req.CacheDir
	}

	valuation, err := time.Parse("2006-01-02", req.ValuationDate)
	if err != nil {
		return fmt.Errorf("valuation_date: %w", err)
	}
	asOf, err := time.Parse("2006-01-02", req.Curve.AsOf)
	if err != nil {
		return fmt.Errorf("curve as_of: %w", err)
	}

	crv, err := curve.NewZeroCurve(req.Curve.Currency, asOf, req.Curve.Terms, req.Curve.Rates)
	if err != nil {
		return err
	}
	store := curve.NewStore()
	store.Put(crv)

	log := logger.New("")
	cache := hullwhite.NewCache(cfg.CacheDir, cfg.CacheTTL, log)
	engine := analytics.NewEngine(cfg, store, cache, analytics.WithLogger(log))

	bonds := make([]*bond.Record, 0, len(req.Bonds))
	for _, bj := range req.Bonds {
		rec, err := toRecord(bj)
		if err != nil {
			return err
		}
		bonds = append(bonds, rec)
	}

	results := engine.AnalyzeBatch(bonds, valuation)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func toRecord(bj bondJSON) (*bond.Record, error) {
	issue, err := time.Parse("2006-01-02", bj.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("%s: issue_date: %w", bj.ISIN, err)
	}
	maturity, err := time.Parse("2006-01-02", bj.MaturityDate)
	if err != nil {
		return nil, fmt.Errorf("%s: maturity_date: %w", bj.ISIN, err)
	}
	dc, err := bond.ParseDayCount(bj.DayCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bj.ISIN, err)
	}

	var calls []bond.CallOption
	for _, cj := range bj.Calls {
		d, err := time.Parse("2006-01-02", cj.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: call date: %w", bj.ISIN, err)
		}
		calls = append(calls, bond.CallOption{Date: d, Price: cj.Price, Type: bond.CallType(cj.Type)})
	}

	return &bond.Record{
		ISIN:            bj.ISIN,
		Currency:        bj.Currency,
		IssueDate:       issue,
		MaturityDate:    maturity,
		CouponRate:      bj.CouponRate,
		CouponFrequency: bj.CouponFrequency,
		DayCount:        dc,
		Notional:        bj.Notional,
		CallSchedule:    calls,
		CleanPrice:      bj.CleanPrice,
		AccruedInterest: bj.AccruedInterest,
	}, nil
}
