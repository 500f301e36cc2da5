package curve

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// UnavailableError reports that no curve could be found for a currency.
type UnavailableError struct {
	Currency string
	Date     time.Time
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no curve available for %s as of %s", e.Currency, e.Date.Format("2006-01-02"))
}

// Store holds zero curves keyed by currency and as-of date. Reads are safe
// for concurrent use with writes.
type Store struct {
	mu     sync.RWMutex
	curves map[string]map[string]*ZeroCurve // currency -> YYYY-MM-DD -> curve
}

func NewStore() *Store {
	return &Store{curves: make(map[string]map[string]*ZeroCurve)}
}

// Put registers a curve under its own currency and as-of date.
func (s *Store) Put(c *ZeroCurve) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate, ok := s.curves[c.Currency()]
	if !ok {
		byDate = make(map[string]*ZeroCurve)
		s.curves[c.Currency()] = byDate
	}
	byDate[c.AsOf().Format("2006-01-02")] = c
}

// Get returns the curve for (currency, date). On a date miss it falls back
// to the most recent earlier date for that currency, then to the earliest
// available, before giving up with UnavailableError.
func (s *Store) Get(currency string, date time.Time) (*ZeroCurve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate, ok := s.curves[currency]
	if !ok || len(byDate) == 0 {
		return nil, &UnavailableError{Currency: currency, Date: date}
	}

	key := date.Format("2006-01-02")
	if c, ok := byDate[key]; ok {
		return c, nil
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	// Most recent date not after the requested one.
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] <= key {
			return byDate[dates[i]], nil
		}
	}
	return byDate[dates[0]], nil
}
