// Package ingest loads historical bar data for a backtest run: one CSV file
// per symbol, read concurrently, normalized into eventcore.BarInfo values in
// timestamp order.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/observability"
)

// barColumns is the expected header of a symbol's bar CSV: timestamp (RFC3339),
// then OHLCV plus turnover.
var barColumns = []string{"timestamp", "open", "high", "low", "close", "volume", "turnover"}

// OpenInput opens a file for reading, or returns stdin if path is empty.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// LoadSymbolBars reads one symbol's bar CSV (header + barColumns order) from
// path and returns it sorted by timestamp.
func LoadSymbolBars(symbol, path string) ([]eventcore.BarInfo, error) {
	f, err := OpenInput(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(barColumns)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read header for %s: %w", symbol, err)
	}
	if err := validateHeader(header); err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}

	var bars []eventcore.BarInfo
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read row for %s: %w", symbol, err)
		}
		bar, err := parseBarRow(symbol, record)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s: %w", path, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func validateHeader(got []string) error {
	if len(got) != len(barColumns) {
		return fmt.Errorf("expected %d columns, got %d", len(barColumns), len(got))
	}
	for i, name := range barColumns {
		if got[i] != name {
			return fmt.Errorf("expected column %d to be %q, got %q", i, name, got[i])
		}
	}
	return nil
}

func parseBarRow(symbol string, record []string) (eventcore.BarInfo, error) {
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return eventcore.BarInfo{}, fmt.Errorf("timestamp %q: %w", record[0], err)
	}

	values := make([]decimal.Decimal, 5)
	for i, raw := range record[1:6] {
		values[i], err = decimal.NewFromString(raw)
		if err != nil {
			return eventcore.BarInfo{}, fmt.Errorf("column %s: %w", barColumns[i+1], err)
		}
	}
	turnover, err := decimal.NewFromString(record[6])
	if err != nil {
		return eventcore.BarInfo{}, fmt.Errorf("column turnover: %w", err)
	}

	return eventcore.BarInfo{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Turnover:  turnover,
	}, nil
}

// SymbolFile pairs a symbol with the path to its bar CSV.
type SymbolFile struct {
	Symbol string
	Path   string
}

// LoadAll loads every symbol's bars concurrently (one goroutine per file,
// joined by an errgroup) and merges them into a single timestamp-sorted feed.
func LoadAll(ctx context.Context, files []SymbolFile) ([]eventcore.BarInfo, error) {
	results := make([][]eventcore.BarInfo, len(files))

	group, _ := errgroup.WithContext(ctx)
	for i, sf := range files {
		i, sf := i, sf
		group.Go(func() error {
			bars, err := LoadSymbolBars(sf.Symbol, sf.Path)
			if err != nil {
				return err
			}
			results[i] = bars
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var merged []eventcore.BarInfo
	for _, bars := range results {
		merged = append(merged, bars...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })

	observability.LogEvent(ctx, "info", "ingest_loaded", map[string]any{
		"symbols": len(files),
		"bars":    len(merged),
	})
	return merged, nil
}

// DiscoverSymbolFiles lists every "<symbol>.csv" file directly under dir.
func DiscoverSymbolFiles(dir string) ([]SymbolFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: read dir %s: %w", dir, err)
	}
	var files []SymbolFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		symbol := entry.Name()[:len(entry.Name())-len(".csv")]
		files = append(files, SymbolFile{Symbol: symbol, Path: filepath.Join(dir, entry.Name())})
	}
	return files, nil
}

// CreateContext creates a context with observability run metadata attached,
// bounded by timeout.
func CreateContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = observability.WithRunInfo(ctx, observability.RunInfo{
		RunID:  observability.NewRunID(),
		TaskID: "ingest",
	})
	return ctx, cancel
}
