// Package app assembles the dispatcher, exchange, wallet, portfolio, and
// strategy routers described by internal/config.Config into a single
// runnable backtest engine.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"jax-backtest-engine/internal/config"
	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/exchange"
	"jax-backtest-engine/libs/ledger"
	"jax-backtest-engine/libs/money"
	"jax-backtest-engine/libs/portfolio"
	"jax-backtest-engine/libs/strategies"
	"jax-backtest-engine/libs/wallet"

	jaxtesting "jax-backtest-engine/libs/testing"
)

// Engine owns every router wired to a single shared Dispatcher and the
// ledgers a run writes to.
type Engine struct {
	Dispatcher *eventcore.Dispatcher
	Exchange   *exchange.Router
	Wallet     *wallet.Wallet
	Portfolio  *portfolio.Router
	Strategies *strategies.Router
	FXTable    *money.Table

	EventLog     *ledger.Store
	PortfolioLog *ledger.Store
	StrategyLog  *ledger.Store
}

// tickSource returns a monotonic TickFn seeded at start and advancing by
// interval on every call, shared by the exchange and portfolio routers so
// derived events (fills, cancels, orders) carry strictly increasing
// timestamps within a causal chain.
func tickSource(start time.Time, interval time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(interval)
		return current
	}
}

// offsetMode maps the config's string knob onto eventcore's typed enum.
func offsetMode(mode string) eventcore.OffsetMode {
	if mode == "minute" {
		return eventcore.MinuteOffsets
	}
	return eventcore.DayOffsets
}

// ContractLookup resolves a symbol to its trading contract (currency and
// lot multiplier). Backtest CLIs typically build one from a symbol/contract
// CSV loaded alongside the bar data.
type ContractLookup = portfolio.ContractLookup

// New builds an Engine from cfg. contracts resolves each traded symbol's
// currency/multiplier; strategyFactory is the single strategy implementation
// the run trades with (selected from a strategy registry by the caller).
func New(cfg *config.Config, contracts ContractLookup, strategyFactory strategies.Factory) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table := money.NewTable(money.Currency(cfg.ReferenceCurrency))
	for _, rate := range cfg.FXRates {
		table.SetRate(money.Currency(rate.Currency),
			decimal.NewFromFloat(rate.FromRef), decimal.NewFromFloat(rate.ToRef))
	}

	dispatcher := eventcore.NewDispatcher(jaxtesting.SystemClock{}, cfg.EndOfTime)

	tick := tickSource(time.Time{}, cfg.TickInterval)
	mode := offsetMode(cfg.OffsetMode)

	exchangeRouter := exchange.NewRouter(dispatcher, mode, exchange.TickFn(tick))
	w := wallet.New(table)
	portfolioRouter := portfolio.NewRouter(context.Background(), table, w, contracts, dispatcher, tick)
	strategyRouter := strategies.NewRouter(strategyFactory, dispatcher)

	eventLog, err := ledger.Open(cfg.LogDir, "events.csv", []string{"event"})
	if err != nil {
		return nil, fmt.Errorf("app.New: event ledger: %w", err)
	}
	// portfolio.csv is created with its header only: no component appends
	// rows to it. portfolio.Router reports capital operations and refreshes
	// through the observability JSON log instead.
	portfolioLog, err := ledger.Open(cfg.LogDir, "portfolio.csv",
		[]string{"cash", "amount", "asset", "debt", "net_asset", "share", "net_price"})
	if err != nil {
		return nil, fmt.Errorf("app.New: portfolio ledger: %w", err)
	}
	strategyLog, err := ledger.Open(cfg.LogDir, "strategy.csv", strategies.MAHeader)
	if err != nil {
		return nil, fmt.Errorf("app.New: strategy ledger: %w", err)
	}

	logEvent := func(ev eventcore.Event) { _ = eventLog.Append(ev.String()) }
	for _, kind := range []eventcore.Kind{
		eventcore.KindBar, eventcore.KindCancel, eventcore.KindFill,
		eventcore.KindOrder, eventcore.KindSignal, eventcore.KindClear, eventcore.KindEnd,
	} {
		dispatcher.Register(kind, logEvent)
	}

	if initial := decimal.NewFromFloat(cfg.InitialCapital); initial.GreaterThan(decimal.Zero) {
		if err := portfolioRouter.Subscribe(initial, money.Currency(cfg.ReferenceCurrency)); err != nil {
			return nil, fmt.Errorf("app.New: seed capital: %w", err)
		}
	}

	return &Engine{
		Dispatcher:   dispatcher,
		Exchange:     exchangeRouter,
		Wallet:       w,
		Portfolio:    portfolioRouter,
		Strategies:   strategyRouter,
		FXTable:      table,
		EventLog:     eventLog,
		PortfolioLog: portfolioLog,
		StrategyLog:  strategyLog,
	}, nil
}

// PostBar posts a Bar event for bar's symbol/timestamp onto the shared
// dispatcher queue and drains the queue before returning, so the whole
// cascade of events that bar causes has been processed. Callers drive a run
// by posting every bar in timestamp order, then calling Run for the
// terminal Default/End sequence.
func (e *Engine) PostBar(bar eventcore.BarInfo) error {
	ev, err := eventcore.NewEvent(eventcore.KindBar, bar.Timestamp, bar)
	if err != nil {
		return err
	}
	e.Dispatcher.Post(ev)
	return e.Dispatcher.ProcessThrough(context.Background())
}

// Run drains the queue via feed until exhausted, then posts the terminal
// Default/End sequence configured on the dispatcher.
func (e *Engine) Run(ctx context.Context, feed func() (eventcore.Event, bool)) error {
	return e.Dispatcher.Run(ctx, feed)
}
