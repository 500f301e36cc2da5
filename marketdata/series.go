// Package marketdata holds the historical inputs the calibration layer
// consumes: date-indexed yield series and swaption volatility surfaces.
// Loaders are feeds; the engine never fetches data itself.
package marketdata

import (
	"sort"
	"time"
)

// Series is a date-indexed rate vector, ascending by date.
type Series struct {
	Currency string
	Dates    []time.Time
	Rates    []float64
}

// Len returns the number of observations.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rates)
}

// SwaptionQuote is one grid point of a volatility surface: option expiry x
// underlying swap tenor, with the market-quoted normal vol (decimal).
type SwaptionQuote struct {
	OptionTenor float64 // years to option expiry
	SwapTenor   float64 // years of the underlying swap
	NormalVol   float64
}

// SwaptionSurface is the quoted grid for one currency and date.
type SwaptionSurface struct {
	Currency string
	AsOf     time.Time
	Quotes   []SwaptionQuote
}

// Empty reports whether the surface carries no usable quotes.
func (s *SwaptionSurface) Empty() bool {
	return s == nil || len(s.Quotes) == 0
}

// SeriesFeed supplies historical yield series per currency, most recent
// observations last.
type SeriesFeed interface {
	HistoricalSeries(currency string, upTo time.Time, maxObs int) (*Series, error)
}

// MapSeriesFeed is a static map-backed feed for development and testing.
type MapSeriesFeed struct {
	series map[string]*Series
}

func NewMapSeriesFeed(series map[string]*Series) *MapSeriesFeed {
	return &MapSeriesFeed{series: series}
}

func (m *MapSeriesFeed) HistoricalSeries(currency string, upTo time.Time, maxObs int) (*Series, error) {
	s, ok := m.series[currency]
	if !ok {
		return &Series{Currency: currency}, nil
	}
	// Truncate to observations on or before upTo.
	n := sort.Search(len(s.Dates), func(i int) bool { return s.Dates[i].After(upTo) })
	start := 0
	if maxObs > 0 && n > maxObs {
		start = n - maxObs
	}
	return &Series{
		Currency: s.Currency,
		Dates:    s.Dates[start:n],
		Rates:    s.Rates[start:n],
	}, nil
}
