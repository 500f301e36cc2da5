package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresSeriesFeed reads historical yields from a Postgres table with
// (currency, obs_date, rate) columns.
type PostgresSeriesFeed struct {
	db    *sql.DB
	table string
}

// OpenPostgresSeriesFeed connects with a lib/pq DSN. The table defaults to
// "yield_history" when empty.
func OpenPostgresSeriesFeed(dsn, table string) (*PostgresSeriesFeed, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenPostgresSeriesFeed: %w", err)
	}
	if table == "" {
		table = "yield_history"
	}
	return &PostgresSeriesFeed{db: db, table: table}, nil
}

func (f *PostgresSeriesFeed) Close() error {
	return f.db.Close()
}

func (f *PostgresSeriesFeed) HistoricalSeries(currency string, upTo time.Time, maxObs int) (*Series, error) {
	q := fmt.Sprintf(`SELECT obs_date, rate FROM %s
		WHERE currency = $1 AND obs_date <= $2
		ORDER BY obs_date DESC LIMIT $3`, f.table)
	if maxObs <= 0 {
		maxObs = 2500
	}
	rows, err := f.db.Query(q, currency, upTo, maxObs)
	if err != nil {
		return nil, fmt.Errorf("HistoricalSeries(%s): %w", currency, err)
	}
	defer rows.Close()

	var dates []time.Time
	var rates []float64
	for rows.Next() {
		var d time.Time
		var r float64
		if err := rows.Scan(&d, &r); err != nil {
			return nil, fmt.Errorf("HistoricalSeries(%s): scan: %w", currency, err)
		}
		dates = append(dates, d)
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("HistoricalSeries(%s): %w", currency, err)
	}

	// Query returned newest-first; the engine wants ascending.
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
		rates[i], rates[j] = rates[j], rates[i]
	}
	return &Series{Currency: currency, Dates: dates, Rates: rates}, nil
}
