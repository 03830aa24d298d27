package ledger

import (
	"context"
	"fmt"
	"time"

	"jax-backtest-engine/libs/database"
	"jax-backtest-engine/libs/resilience"

	"github.com/shopspring/decimal"
)

// RunSummary is the durable, queryable record of one completed backtest
// run: final NAV and share accounting plus a few headline counters. The
// event-by-event and portfolio-by-portfolio detail stays in the CSV
// Stores; Postgres only holds the one-row-per-run rollup a reporting API
// would query across many runs.
type RunSummary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	FinalAsset  decimal.Decimal
	FinalShare  decimal.Decimal
	NetPrice    decimal.Decimal
	FillCount   int
	CancelCount int
}

// PostgresSink persists RunSummary rows behind a circuit breaker, so a
// database outage degrades a backtest run's optional reporting surface
// without aborting the run itself.
type PostgresSink struct {
	db *database.DB
	cb *resilience.CircuitBreaker
}

// NewPostgresSink wraps db with a circuit breaker. name distinguishes this
// sink's breaker from any other in the process.
func NewPostgresSink(db *database.DB, name string) *PostgresSink {
	return &PostgresSink{db: db, cb: resilience.NewCircuitBreaker(resilience.DefaultConfig(name))}
}

// Record upserts one run's summary row.
func (s *PostgresSink) Record(ctx context.Context, run RunSummary) error {
	_, err := s.cb.ExecuteWithContext(ctx, func() (any, error) {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO run_summary (run_id, started_at, finished_at, final_asset, final_share, net_price, fill_count, cancel_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (run_id) DO UPDATE SET
				finished_at = EXCLUDED.finished_at,
				final_asset = EXCLUDED.final_asset,
				final_share = EXCLUDED.final_share,
				net_price = EXCLUDED.net_price,
				fill_count = EXCLUDED.fill_count,
				cancel_count = EXCLUDED.cancel_count
		`, run.RunID, run.StartedAt, run.FinishedAt, run.FinalAsset.String(), run.FinalShare.String(), run.NetPrice.String(), run.FillCount, run.CancelCount)
		return nil, execErr
	})
	if err != nil {
		return fmt.Errorf("ledger.PostgresSink.Record: %w", err)
	}
	return nil
}

// Get fetches one run's summary row.
func (s *PostgresSink) Get(ctx context.Context, runID string) (RunSummary, error) {
	result, err := s.cb.ExecuteWithContext(ctx, func() (any, error) {
		row := s.db.QueryRowContext(ctx, `
			SELECT run_id, started_at, finished_at, final_asset, final_share, net_price, fill_count, cancel_count
			FROM run_summary WHERE run_id = $1
		`, runID)
		return scanRunSummary(row)
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("ledger.PostgresSink.Get: %w", err)
	}
	return result.(RunSummary), nil
}

// List returns every recorded run, most recently started first.
func (s *PostgresSink) List(ctx context.Context) ([]RunSummary, error) {
	result, err := s.cb.ExecuteWithContext(ctx, func() (any, error) {
		rows, queryErr := s.db.QueryContext(ctx, `
			SELECT run_id, started_at, finished_at, final_asset, final_share, net_price, fill_count, cancel_count
			FROM run_summary ORDER BY started_at DESC
		`)
		if queryErr != nil {
			return nil, queryErr
		}
		defer rows.Close()

		var runs []RunSummary
		for rows.Next() {
			run, scanErr := scanRunSummary(rows)
			if scanErr != nil {
				return nil, scanErr
			}
			runs = append(runs, run)
		}
		return runs, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("ledger.PostgresSink.List: %w", err)
	}
	return result.([]RunSummary), nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row rowScanner) (RunSummary, error) {
	var run RunSummary
	var finalAsset, finalShare, netPrice string
	if err := row.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt,
		&finalAsset, &finalShare, &netPrice, &run.FillCount, &run.CancelCount); err != nil {
		return RunSummary{}, err
	}
	var err error
	if run.FinalAsset, err = decimal.NewFromString(finalAsset); err != nil {
		return RunSummary{}, fmt.Errorf("final_asset: %w", err)
	}
	if run.FinalShare, err = decimal.NewFromString(finalShare); err != nil {
		return RunSummary{}, fmt.Errorf("final_share: %w", err)
	}
	if run.NetPrice, err = decimal.NewFromString(netPrice); err != nil {
		return RunSummary{}, fmt.Errorf("net_price: %w", err)
	}
	return run, nil
}
