package portfolio

import (
	"context"
	"time"

	"jax-backtest-engine/libs/eventcore"
	"jax-backtest-engine/libs/money"
	"jax-backtest-engine/libs/observability"
	"jax-backtest-engine/libs/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const netPriceDP = 4
const assetDP = 2
const shareDP = 2

// ContractLookup resolves a symbol's trading currency and contract
// multiplier. The portfolio never trades a symbol it cannot resolve.
type ContractLookup func(symbol string) Contract

// Router is the portfolio: wallet, per-symbol holdings, the buy-signal
// queue, and share/debt/NAV accounting. It registers itself on the
// dispatcher for Signal, Fill, Clear and Price.
type Router struct {
	ctx        context.Context
	table      *money.Table
	wallet     *wallet.Wallet
	contracts  ContractLookup
	dispatcher *eventcore.Dispatcher
	tick       func() time.Time
	newID      func() string

	holdings map[string]*Holding
	buyQueue *BuySignalQueue

	activeOrders  map[string]map[string]bool
	activeSymbols map[string]map[string]bool

	Share    decimal.Decimal
	Debt     decimal.Decimal
	NetPrice decimal.Decimal
}

// NewRouter builds the portfolio router and registers its handlers.
func NewRouter(ctx context.Context, table *money.Table, w *wallet.Wallet, contracts ContractLookup, dispatcher *eventcore.Dispatcher, tick func() time.Time) *Router {
	r := &Router{
		ctx:           ctx,
		table:         table,
		wallet:        w,
		contracts:     contracts,
		dispatcher:    dispatcher,
		tick:          tick,
		newID:         uuid.NewString,
		holdings:      make(map[string]*Holding),
		buyQueue:      NewBuySignalQueue(),
		activeOrders:  make(map[string]map[string]bool),
		activeSymbols: make(map[string]map[string]bool),
		NetPrice:      decimal.NewFromInt(1),
	}
	dispatcher.Register(eventcore.KindSignal, r.onSignal)
	dispatcher.Register(eventcore.KindFill, r.onFill)
	dispatcher.Register(eventcore.KindPrice, r.onPrice)
	dispatcher.Register(eventcore.KindClear, r.onClear)
	return r
}

func (r *Router) holding(symbol string) *Holding {
	h, ok := r.holdings[symbol]
	if !ok {
		h = NewHolding(symbol, r.contracts(symbol))
		r.holdings[symbol] = h
	}
	return h
}

func (r *Router) logPortfolio(event string, fields map[string]any) {
	merged := map[string]any{
		"share":     r.Share.String(),
		"debt":      r.Debt.String(),
		"net_price": r.NetPrice.String(),
	}
	for k, v := range fields {
		merged[k] = v
	}
	observability.LogEvent(r.ctx, "info", event, merged)
}

// Subscribe credits amount of ccy into the wallet and issues shares at the
// current net price.
func (r *Router) Subscribe(amount decimal.Decimal, ccy money.Currency) error {
	flow, err := money.NewCashFlow(r.table, ccy, amount)
	if err != nil {
		return err
	}
	refAmount, err := r.wallet.Input(flow)
	if err != nil {
		return err
	}
	r.Share = r.Share.Add(refAmount.Div(r.NetPrice).Round(shareDP))
	r.logPortfolio("subscribe", map[string]any{"amount": amount.String(), "currency": ccy})
	return nil
}

// RedeemAmount withdraws amount of ccy, decrementing share proportionally.
func (r *Router) RedeemAmount(amount decimal.Decimal, ccy money.Currency) (money.CashFlow, bool, error) {
	flow, ok, err := r.wallet.Output(ccy, amount)
	if err != nil || !ok {
		return money.CashFlow{}, ok, err
	}
	refAmount, err := flow.ToReference(r.table)
	if err != nil {
		return money.CashFlow{}, false, err
	}
	r.Share = r.Share.Sub(refAmount.Div(r.NetPrice).Round(shareDP))
	r.logPortfolio("redeem_amount", map[string]any{"amount": amount.String(), "currency": ccy})
	return flow, true, nil
}

// RedeemShare withdraws share's worth of reference-currency cash,
// converted into ccy.
func (r *Router) RedeemShare(share decimal.Decimal, ccy money.Currency) (money.CashFlow, bool, error) {
	refFlow, ok, err := r.wallet.Output(r.table.Reference(), share.Mul(r.NetPrice))
	if err != nil || !ok {
		return money.CashFlow{}, ok, err
	}
	out, err := money.Exchange(r.table, refFlow, ccy)
	if err != nil {
		return money.CashFlow{}, false, err
	}
	r.Share = r.Share.Sub(share)
	r.logPortfolio("redeem_share", map[string]any{"share": share.String(), "currency": ccy})
	return out, true, nil
}

// Borrow credits amount of ccy and records the debt.
func (r *Router) Borrow(amount decimal.Decimal, ccy money.Currency) error {
	flow, err := money.NewCashFlow(r.table, ccy, amount)
	if err != nil {
		return err
	}
	refAmount, err := r.wallet.Input(flow)
	if err != nil {
		return err
	}
	r.Debt = r.Debt.Add(refAmount)
	r.logPortfolio("borrow", map[string]any{"amount": amount.String(), "currency": ccy})
	return nil
}

// Repay withdraws amount of ccy and reduces the recorded debt.
func (r *Router) Repay(amount decimal.Decimal, ccy money.Currency) (money.CashFlow, bool, error) {
	flow, ok, err := r.wallet.Output(ccy, amount)
	if err != nil || !ok {
		return money.CashFlow{}, ok, err
	}
	refAmount, err := flow.ToReference(r.table)
	if err != nil {
		return money.CashFlow{}, false, err
	}
	r.Debt = r.Debt.Sub(refAmount)
	r.logPortfolio("repay", map[string]any{"amount": amount.String(), "currency": ccy})
	return flow, true, nil
}

// Refresh recomputes net asset value and net price from the wallet and
// every holding's current valuation.
func (r *Router) Refresh() error {
	asset, netAsset, err := r.computeAsset()
	if err != nil {
		return err
	}
	if !r.Share.IsZero() {
		r.NetPrice = netAsset.Div(r.Share).Round(netPriceDP)
	}
	r.logPortfolio("refresh", map[string]any{"asset": asset.String(), "net_asset": netAsset.String()})
	return nil
}

func (r *Router) computeAsset() (asset, netAsset decimal.Decimal, err error) {
	cash := r.wallet.Total()
	holdingsValue := decimal.Zero
	for _, h := range r.holdings {
		v, verr := h.CurrentValue(r.table)
		if verr != nil {
			return decimal.Zero, decimal.Zero, verr
		}
		holdingsValue = holdingsValue.Add(v)
	}
	asset = cash.Add(holdingsValue).Round(assetDP)
	return asset, asset.Sub(r.Debt), nil
}

// NetAsset reports the portfolio's current asset value (cash plus
// mark-to-market holdings, net of debt) without mutating NetPrice.
func (r *Router) NetAsset() (decimal.Decimal, error) {
	_, netAsset, err := r.computeAsset()
	return netAsset, err
}

func (r *Router) registerActive(orderID, symbol string) {
	if r.activeOrders[orderID] == nil {
		r.activeOrders[orderID] = make(map[string]bool)
	}
	r.activeOrders[orderID][symbol] = true
	if r.activeSymbols[symbol] == nil {
		r.activeSymbols[symbol] = make(map[string]bool)
	}
	r.activeSymbols[symbol][orderID] = true
}

func (r *Router) postOrder(order eventcore.OrderInfo) {
	ev, err := eventcore.NewEvent(eventcore.KindOrder, order.Timestamp, order)
	if err == nil {
		r.dispatcher.Post(ev)
	}
}

func (r *Router) onSignal(ev eventcore.Event) {
	signal, ok := ev.Payload.(eventcore.SignalInfo)
	if !ok {
		return
	}
	if signal.Direction == eventcore.Buy {
		r.processBuySignal(signal)
		return
	}
	r.processSellSignal(signal)
}

func (r *Router) processBuySignal(signal eventcore.SignalInfo) {
	h := r.holding(signal.Symbol)
	required := h.VolumeToAmount(signal.Volume, signal.Price, eventcore.Buy)
	requiredRef, err := r.table.SellToReference(money.Currency(signal.Currency), required)
	if err != nil {
		return
	}

	remainder := decimal.Zero
	switch {
	case r.wallet.HasAvailable(requiredRef):
		order := eventcore.OrderInfo{
			ID: signal.ID, Symbol: signal.Symbol, Timestamp: r.tick(),
			Direction: eventcore.Buy, OpenClose: signal.OpenClose,
			Price: signal.Price, Volume: signal.Volume,
			OrderType: eventcore.SignalTypeToOrderType(signal.SignalType_),
		}
		r.postOrder(order)
		r.wallet.Freeze(order.ID, order.Symbol, money.Currency(signal.Currency), required)
		r.registerActive(order.ID, order.Symbol)
	case signal.SignalType_ == eventcore.SignalTBF || signal.SignalType_ == eventcore.SignalIOC:
		affordableNative, err := r.table.BuyWithReference(money.Currency(signal.Currency), r.wallet.Available())
		if err != nil {
			return
		}
		maxVolume := h.AmountToVolume(affordableNative, signal.Price, eventcore.Buy)
		if maxVolume.IsPositive() {
			sizedID := r.newID()
			sizedAmount := h.VolumeToAmount(maxVolume, signal.Price, eventcore.Buy)
			order := eventcore.OrderInfo{
				ID: sizedID, Symbol: signal.Symbol, Timestamp: r.tick(),
				Direction: eventcore.Buy, OpenClose: signal.OpenClose,
				Price: signal.Price, Volume: maxVolume,
				OrderType: eventcore.SignalTypeToOrderType(signal.SignalType_),
			}
			r.postOrder(order)
			r.wallet.Freeze(order.ID, order.Symbol, money.Currency(signal.Currency), sizedAmount)
			r.registerActive(order.ID, order.Symbol)
		}
		remainder = signal.Volume.Sub(maxVolume)
	default:
		remainder = signal.Volume
	}

	if remainder.IsPositive() && (signal.SignalType_ == eventcore.SignalTBF || signal.SignalType_ == eventcore.SignalFOW) {
		residual := signal
		residual.Volume = remainder
		residual.Amount = h.VolumeToAmount(remainder, signal.Price, eventcore.Buy)
		r.buyQueue.Put(residual)
	}
}

func (r *Router) processSellSignal(signal eventcore.SignalInfo) {
	h := r.holding(signal.Symbol)
	availableVolume := signal.Volume
	if h.Volume.LessThan(availableVolume) {
		availableVolume = h.Volume
	}
	if !availableVolume.IsPositive() {
		if signal.SignalType_ != eventcore.SignalTBF && signal.SignalType_ != eventcore.SignalIOC {
			return
		}
		if !h.Volume.IsPositive() {
			return
		}
		availableVolume = h.Volume
	}
	order := eventcore.OrderInfo{
		ID: signal.ID, Symbol: signal.Symbol, Timestamp: r.tick(),
		Direction: eventcore.Sell, OpenClose: signal.OpenClose,
		Price: signal.Price, Volume: availableVolume,
		OrderType: eventcore.SignalTypeToOrderType(signal.SignalType_),
	}
	r.postOrder(order)
	r.registerActive(order.ID, order.Symbol)
}

// drainBuyQueue is invoked on Clear: it pops every signal the wallet can
// now afford in full, then sizes down the new top entry in place if it is
// a TBF signal and at least one lot is affordable.
func (r *Router) drainBuyQueue() {
	for {
		top, err := r.buyQueue.Peek()
		if err != nil {
			return
		}
		topRef, err := r.table.SellToReference(money.Currency(top.Currency), top.Amount)
		if err != nil || !r.wallet.HasAvailable(topRef) {
			break
		}
		signal, err := r.buyQueue.Pop()
		if err != nil {
			return
		}
		order := eventcore.OrderInfo{
			ID: signal.ID, Symbol: signal.Symbol, Timestamp: r.tick(),
			Direction: eventcore.Buy, OpenClose: signal.OpenClose,
			Price: signal.Price, Volume: signal.Volume,
			OrderType: eventcore.SignalTypeToOrderType(signal.SignalType_),
		}
		r.postOrder(order)
		r.wallet.Freeze(order.ID, order.Symbol, money.Currency(signal.Currency), signal.Amount)
		r.registerActive(order.ID, order.Symbol)
	}

	top, err := r.buyQueue.Peek()
	if err != nil || top.SignalType_ != eventcore.SignalTBF {
		return
	}
	h := r.holding(top.Symbol)
	affordableNative, err := r.table.BuyWithReference(money.Currency(top.Currency), r.wallet.Available())
	if err != nil {
		return
	}
	lotVolume := h.AmountToVolume(affordableNative, top.Price, eventcore.Buy)
	if !lotVolume.IsPositive() {
		return
	}
	if lotVolume.GreaterThan(top.Volume) {
		lotVolume = top.Volume
	}
	sizedID := r.newID()
	sizedAmount := h.VolumeToAmount(lotVolume, top.Price, eventcore.Buy)
	order := eventcore.OrderInfo{
		ID: sizedID, Symbol: top.Symbol, Timestamp: r.tick(),
		Direction: eventcore.Buy, OpenClose: top.OpenClose,
		Price: top.Price, Volume: lotVolume, OrderType: eventcore.OrderTBF,
	}
	r.postOrder(order)
	r.wallet.Freeze(order.ID, order.Symbol, money.Currency(top.Currency), sizedAmount)
	r.registerActive(order.ID, order.Symbol)

	residual := top
	residual.Volume = top.Volume.Sub(lotVolume)
	residual.Amount = h.VolumeToAmount(residual.Volume, top.Price, eventcore.Buy)
	if residual.Volume.IsPositive() {
		r.buyQueue.ReplaceTop(residual)
	} else {
		r.buyQueue.Pop()
	}
}

func (r *Router) onClear(eventcore.Event) {
	r.drainBuyQueue()
}

func (r *Router) onPrice(ev eventcore.Event) {
	p, ok := ev.Payload.(eventcore.PriceInfo)
	if !ok {
		return
	}
	if h, known := r.holdings[p.Symbol]; known {
		h.OnPrice(p)
	}
}

func (r *Router) onFill(ev eventcore.Event) {
	fill, ok := ev.Payload.(eventcore.FillInfo)
	if !ok {
		return
	}
	_, known := r.holdings[fill.Symbol]
	if !known && fill.Direction == eventcore.Buy && fill.OpenClose == eventcore.Open {
		r.holdings[fill.Symbol] = NewHolding(fill.Symbol, r.contracts(fill.Symbol))
	}
	h := r.holding(fill.Symbol)
	h.OnFill(fill)

	flow, err := h.VolumeToCashFlow(r.table, fill)
	if err != nil {
		return
	}
	if fill.Partial {
		r.wallet.ProcessPartialFill(fill, flow)
		return
	}
	r.wallet.ProcessFullFill(fill, flow)
	r.wallet.Release(fill.OrderID, fill.Symbol)

	if r.activeOrders[fill.OrderID] != nil && r.activeOrders[fill.OrderID][fill.Symbol] {
		ts := r.tick()
		for _, dir := range [2]eventcore.Direction{eventcore.Buy, eventcore.Sell} {
			cancel := eventcore.CancelInfo{OrderID: fill.OrderID, Symbol: fill.Symbol, Timestamp: ts, Direction: dir}
			cancelEv, err := eventcore.NewEvent(eventcore.KindCancel, ts, cancel)
			if err == nil {
				r.dispatcher.Post(cancelEv)
			}
		}
		delete(r.activeOrders[fill.OrderID], fill.Symbol)
		if len(r.activeOrders[fill.OrderID]) == 0 {
			delete(r.activeOrders, fill.OrderID)
		}
		delete(r.activeSymbols[fill.Symbol], fill.OrderID)
		if len(r.activeSymbols[fill.Symbol]) == 0 {
			delete(r.activeSymbols, fill.Symbol)
		}
	}
}

// ResetPrice zeroes every holding's current price, supplementing the
// core model with a hook to recompute NAV from a clean slate between
// sessions.
func (r *Router) ResetPrice() {
	for _, h := range r.holdings {
		h.CurrentPrice = decimal.Zero
	}
}

// CancelSymbol releases every frozen slot and drops active-order
// bookkeeping for a single symbol, without touching other symbols'
// resting orders.
func (r *Router) CancelSymbol(symbol string) {
	for orderID := range r.activeSymbols[symbol] {
		r.wallet.Release(orderID, symbol)
		delete(r.activeOrders[orderID], symbol)
		if len(r.activeOrders[orderID]) == 0 {
			delete(r.activeOrders, orderID)
		}
	}
	delete(r.activeSymbols, symbol)
}

// CancelAll releases every frozen slot across every symbol.
func (r *Router) CancelAll() {
	r.wallet.ReleaseAll()
	r.activeOrders = make(map[string]map[string]bool)
	r.activeSymbols = make(map[string]map[string]bool)
}
