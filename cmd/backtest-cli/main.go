// cmd/backtest-cli runs one backtest from CSV bar files and writes its
// event, portfolio, and strategy ledgers to a log directory. It replaces the
// interactive research/trader runtimes with a single batch invocation.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-backtest-engine/internal/app"
	"jax-backtest-engine/internal/config"
	"jax-backtest-engine/libs/database"
	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/ingest"
	"jax-backtest-engine/libs/ledger"
	"jax-backtest-engine/libs/marketdata"
	"jax-backtest-engine/libs/money"
	"jax-backtest-engine/libs/portfolio"
	"jax-backtest-engine/libs/strategies"

	jaxtesting "jax-backtest-engine/libs/testing"
)

func main() {
	dataDir := flag.String("data-dir", "", "directory of <symbol>.csv bar files")
	contractsPath := flag.String("contracts", "", "CSV file of symbol,currency,multiplier (optional; reference currency and multiplier 1 assumed when absent)")
	logDir := flag.String("log-dir", "./run-logs", "directory to write events.csv, portfolio.csv, strategy.csv")
	configPath := flag.String("config", "", "JSON config file (optional; overrides the flag defaults below)")
	strategyID := flag.String("strategy", "ma_crossover", "strategy id to trade with")
	shortPeriod := flag.Int("short", 5, "MA crossover short window")
	longPeriod := flag.Int("long", 20, "MA crossover long window")
	currency := flag.String("currency", "CNY", "reference currency")
	capital := flag.Float64("capital", 1_000_000, "initial capital, in the reference currency")
	redisURL := flag.String("redis-url", "", "optional Redis address; caches run results by config hash when set")
	postgresDSN := flag.String("postgres-dsn", "", "optional Postgres DSN; records the run summary when set")
	flag.Parse()

	if *dataDir == "" {
		log.Fatal("backtest-cli: -data-dir is required")
	}

	cfg, err := loadConfig(*configPath, *logDir, *currency, *capital)
	if err != nil {
		log.Fatalf("backtest-cli: %v", err)
	}

	ctx, cancel := ingest.CreateContext(10 * time.Minute)
	defer cancel()

	cacheKey := runCacheKey(*dataDir, *contractsPath, *strategyID, *shortPeriod, *longPeriod, *currency, *capital)
	cache := connectCache(*redisURL)
	if cache != nil {
		defer cache.Close()
		if cached, err := cache.Get(ctx, cacheKey); err == nil {
			var summary ledger.RunSummary
			if err := json.Unmarshal(cached, &summary); err == nil {
				log.Printf("cache hit for this configuration (run %s): asset=%s share=%s net_price=%s",
					summary.RunID, summary.FinalAsset, summary.FinalShare, summary.NetPrice)
				return
			}
		}
	}

	files, err := ingest.DiscoverSymbolFiles(*dataDir)
	if err != nil {
		log.Fatalf("backtest-cli: discover bar files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("backtest-cli: no *.csv files found under %s", *dataDir)
	}
	log.Printf("loading bars for %d symbols from %s", len(files), *dataDir)

	bars, err := ingest.LoadAll(ctx, files)
	if err != nil {
		log.Fatalf("backtest-cli: load bars: %v", err)
	}
	log.Printf("loaded %d bars spanning %d symbols", len(bars), len(files))

	contracts, err := loadContracts(*contractsPath, money.Currency(*currency))
	if err != nil {
		log.Fatalf("backtest-cli: load contracts: %v", err)
	}

	registry := strategies.NewRegistry()
	if err := registerStrategies(*logDir, *shortPeriod, *longPeriod, *currency, registry); err != nil {
		log.Fatalf("backtest-cli: %v", err)
	}
	factory, err := registry.Get(*strategyID)
	if err != nil {
		log.Fatalf("backtest-cli: %v", err)
	}

	engine, err := app.New(cfg, contracts, factory)
	if err != nil {
		log.Fatalf("backtest-cli: build engine: %v", err)
	}

	var fillCount, cancelCount int
	engine.Dispatcher.Register(eventcore.KindFill, func(eventcore.Event) { fillCount++ })
	engine.Dispatcher.Register(eventcore.KindCancel, func(eventcore.Event) { cancelCount++ })

	runID := uuid.NewString()
	startedAt := jaxtesting.SystemClock{}.Now()

	i := 0
	feed := func() (eventcore.Event, bool) {
		if i >= len(bars) {
			return eventcore.Event{}, false
		}
		bar := bars[i]
		i++
		ev, err := eventcore.NewEvent(eventcore.KindBar, bar.Timestamp, bar)
		if err != nil {
			log.Fatalf("backtest-cli: build bar event: %v", err)
		}
		return ev, true
	}

	if err := engine.Run(ctx, feed); err != nil {
		log.Fatalf("backtest-cli: run: %v", err)
	}

	if err := engine.Portfolio.Refresh(); err != nil {
		log.Printf("backtest-cli: refresh portfolio: %v", err)
	}
	netAsset, err := engine.Portfolio.NetAsset()
	if err != nil {
		log.Printf("backtest-cli: compute net asset: %v", err)
	}
	log.Printf("run complete: cash=%s net_asset=%s net_price=%s", engine.Wallet.Available(), netAsset, engine.Portfolio.NetPrice)

	summary := ledger.RunSummary{
		RunID: runID, StartedAt: startedAt, FinishedAt: jaxtesting.SystemClock{}.Now(),
		FinalAsset: netAsset, FinalShare: engine.Portfolio.Share, NetPrice: engine.Portfolio.NetPrice,
		FillCount: fillCount, CancelCount: cancelCount,
	}

	if cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := cache.Set(ctx, cacheKey, data); err != nil {
				log.Printf("backtest-cli: cache run result: %v", err)
			}
		}
	}

	if *postgresDSN != "" {
		recordSummary(ctx, *postgresDSN, summary)
	}
}

// runCacheKey hashes the data directory and contracts paths, the strategy
// id, the MA windows, the currency and the capital flag into one Redis key,
// so two invocations with the same values share a result. The contents of
// the data and contracts files, and any -config file, are not part of the key.
func runCacheKey(dataDir, contractsPath, strategyID string, short, long int, currency string, capital float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d|%s|%f", dataDir, contractsPath, strategyID, short, long, currency, capital)
	return hex.EncodeToString(h.Sum(nil))
}

// connectCache dials Redis if url is set. A dial failure degrades to no
// cache rather than aborting the run, matching the cache's pure-cache contract.
func connectCache(url string) *marketdata.Cache {
	if url == "" {
		return nil
	}
	cache, err := marketdata.NewCache(marketdata.CacheConfig{RedisURL: url, TTL: 24 * time.Hour})
	if err != nil {
		log.Printf("backtest-cli: redis cache unavailable, resimulating every run: %v", err)
		return nil
	}
	return cache
}

// recordSummary persists the run summary to Postgres if reachable. A
// connection or write failure is logged, never fatal to a completed run.
func recordSummary(ctx context.Context, dsn string, summary ledger.RunSummary) {
	dbConfig := database.DefaultConfig()
	dbConfig.DSN = dsn
	db, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Printf("backtest-cli: postgres unavailable, run summary not recorded: %v", err)
		return
	}
	defer db.Close()

	sink := ledger.NewPostgresSink(db, "backtest-cli")
	if err := sink.Record(ctx, summary); err != nil {
		log.Printf("backtest-cli: record run summary: %v", err)
	}
}

func loadConfig(path, logDir, currency string, capital float64) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := config.New().
		WithLogDir(logDir).
		WithReferenceCurrency(currency).
		WithInitialCapital(capital)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerStrategies opens strategy.csv and registers the MA crossover
// strategy against it. A future strategy would register alongside it here
// and the -strategy flag would select between them.
func registerStrategies(logDir string, short, long int, currency string, registry *strategies.Registry) error {
	strategyLog, err := ledger.Open(logDir, "strategy.csv", strategies.MAHeader)
	if err != nil {
		return fmt.Errorf("open strategy ledger: %w", err)
	}
	factory := strategies.NewMACrossoverFactory(short, long, currency, strategyLog)
	return registry.Register(factory, strategies.Metadata{
		ID:          "ma_crossover",
		Name:        "Moving Average Crossover",
		Description: fmt.Sprintf("short(%d)/long(%d) moving-average crossover, signalling on direction flips", short, long),
	})
}

// loadContracts reads a symbol,currency,multiplier CSV into a
// portfolio.ContractLookup. An empty path yields a lookup that assumes a
// unit multiplier in ref for every symbol.
func loadContracts(path string, ref money.Currency) (portfolio.ContractLookup, error) {
	if path == "" {
		return func(string) portfolio.Contract {
			return portfolio.Contract{Currency: ref, Multiplier: decimal.NewFromInt(1)}
		}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := make(map[string]portfolio.Contract)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		multiplier, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("contract %s: multiplier %q: %w", record[0], record[2], err)
		}
		table[record[0]] = portfolio.Contract{
			Currency:   money.Currency(record[1]),
			Multiplier: multiplier,
		}
	}

	return func(symbol string) portfolio.Contract {
		if c, ok := table[symbol]; ok {
			return c
		}
		return portfolio.Contract{Currency: ref, Multiplier: decimal.NewFromInt(1)}
	}, nil
}
