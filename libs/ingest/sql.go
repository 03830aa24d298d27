package ingest

import (
	"context"
	"fmt"

	"jax-backtest-engine/libs/database"
	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/resilience"
)

// storeBarQuery upserts one symbol/timestamp bar, keeping the latest write
// when the same (symbol, timestamp) is loaded twice across overlapping CSVs.
const storeBarQuery = `
	INSERT INTO bars (symbol, timestamp, open, high, low, close, volume, turnover)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (symbol, timestamp) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		turnover = EXCLUDED.turnover
`

// BarSink persists loaded bars to Postgres behind a circuit breaker, so a
// database outage degrades the optional durable archive without blocking a
// run that only needs bars in memory to replay.
type BarSink struct {
	db *database.DB
	cb *resilience.CircuitBreaker
}

// NewBarSink wraps db with a circuit breaker. name distinguishes this sink's
// breaker from any other in the process.
func NewBarSink(db *database.DB, name string) *BarSink {
	return &BarSink{db: db, cb: resilience.NewCircuitBreaker(resilience.DefaultConfig(name))}
}

// Store upserts every bar in a single transaction.
func (s *BarSink) Store(ctx context.Context, bars []eventcore.BarInfo) error {
	if len(bars) == 0 {
		return nil
	}
	_, err := s.cb.ExecuteWithContext(ctx, func() (any, error) {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return nil, txErr
		}
		defer tx.Rollback()

		stmt, txErr := tx.PrepareContext(ctx, storeBarQuery)
		if txErr != nil {
			return nil, fmt.Errorf("prepare bar statement: %w", txErr)
		}
		defer stmt.Close()

		for _, bar := range bars {
			if _, execErr := stmt.ExecContext(ctx,
				bar.Symbol, bar.Timestamp,
				bar.Open.String(), bar.High.String(), bar.Low.String(), bar.Close.String(),
				bar.Volume.String(), bar.Turnover.String(),
			); execErr != nil {
				return nil, fmt.Errorf("store bar for %s at %v: %w", bar.Symbol, bar.Timestamp, execErr)
			}
		}

		return nil, tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("ingest.BarSink.Store: %w", err)
	}
	return nil
}
