// Package sync converges the WooCommerce backend cart on the session
// ledger. Local edits apply instantly to the ledger; the engine pushes the
// minimal set of backend mutations afterwards, debounced so a burst of
// stepper clicks becomes one reconciliation pass.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	"storefront/internal/woocommerce"
)

// DefaultDebounce is the coalescing window for scheduled syncs.
const DefaultDebounce = 200 * time.Millisecond

// StoreAPI is the slice of the Store API client the engine needs.
type StoreAPI interface {
	GetCart(ctx context.Context, tokens woocommerce.TokenStore) (*woocommerce.WooCartResponse, error)
	AddItem(ctx context.Context, tokens woocommerce.TokenStore, id, quantity int) (*woocommerce.WooCartResponse, error)
	UpdateItem(ctx context.Context, tokens woocommerce.TokenStore, key string, quantity int) (*woocommerce.WooCartResponse, error)
	RemoveItem(ctx context.Context, tokens woocommerce.TokenStore, key string) (*woocommerce.WooCartResponse, error)
	ApplyCoupon(ctx context.Context, tokens woocommerce.TokenStore, code string) (*woocommerce.WooCartResponse, error)
	RemoveCoupon(ctx context.Context, tokens woocommerce.TokenStore, code string) (*woocommerce.WooCartResponse, error)
}

// RateReconciler runs after a sync pass converges, with the fresh backend
// snapshot. It may issue further rate-selection calls and return an updated
// snapshot, or (nil, nil) to keep the one it was given.
type RateReconciler interface {
	Reconcile(ctx context.Context, tokens woocommerce.TokenStore, snap *woocommerce.WooCartResponse) (*woocommerce.WooCartResponse, error)
}

// Engine reconciles one session's ledger with the backend cart.
//
// Every pass takes a ticket from a monotonic counter and cancels its
// predecessor. A pass checks its ticket after each await point; once a
// newer pass exists, the stale one discards its results and exits with
// ErrSuperseded. Backend state can therefore lag the ledger but never
// overwrite a newer edit with older data.
type Engine struct {
	store    *cart.Store
	tokens   woocommerce.TokenStore
	api      StoreAPI
	rates    RateReconciler // optional
	debounce time.Duration
	logger   *slog.Logger

	seq atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	timer   *time.Timer
	errMsg  string
	syncing bool
	closed  bool

	applyMu sync.Mutex
}

// Config wires an Engine.
type Config struct {
	Store    *cart.Store
	Tokens   woocommerce.TokenStore
	API      StoreAPI
	Rates    RateReconciler // optional free-shipping auto-selection
	Debounce time.Duration  // 0 means DefaultDebounce
	Logger   *slog.Logger
}

// NewEngine creates an Engine for one session.
func NewEngine(cfg Config) *Engine {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    cfg.Store,
		tokens:   cfg.Tokens,
		api:      cfg.API,
		rates:    cfg.Rates,
		debounce: debounce,
		logger:   logger,
	}
}

// Schedule queues a background sync after the debounce window. Further
// calls within the window reset it, so a burst of edits coalesces into a
// single pass.
func (e *Engine) Schedule() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() {
		e.runLatest(context.Background())
	})
}

// Sync runs a pass immediately and waits for it. Any pending debounced pass
// is absorbed. Returns ErrSuperseded if a newer pass started while this one
// was in flight.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	return e.runLatest(ctx)
}

// Err returns the user-facing message from the last failed pass, empty
// after a clean one. Superseded and cancelled passes never set it.
func (e *Engine) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errMsg
}

// Syncing reports whether a pass is in flight.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// Close cancels any pending or in-flight pass.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) runLatest(ctx context.Context) error {
	ticket := e.seq.Add(1)
	ctx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return nil
	}
	if e.cancel != nil {
		// Abort the predecessor; its results are stale by definition.
		e.cancel()
	}
	e.cancel = cancel
	e.syncing = true
	e.mu.Unlock()

	err := e.run(ctx, ticket)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if ticket == e.seq.Load() {
		e.syncing = false
	}
	if err == nil {
		e.errMsg = ""
		return nil
	}
	if errors.Is(err, model.ErrSuperseded) || errors.Is(err, context.Canceled) {
		return err
	}
	e.errMsg = userMessage(err)
	e.logger.Warn("cart sync failed", "error", err)
	return err
}

// stale reports whether a newer pass has started since ticket was issued.
func (e *Engine) stale(ticket uint64) bool {
	return ticket != e.seq.Load()
}

func (e *Engine) run(ctx context.Context, ticket uint64) error {
	snap, err := e.api.GetCart(ctx, e.tokens)
	if err != nil {
		return err
	}
	if e.stale(ticket) {
		return model.ErrSuperseded
	}

	lines := e.store.Lines()
	desired := make([]reconcile.DesiredItem, len(lines))
	for i, l := range lines {
		desired[i] = reconcile.DesiredItem{
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Quantity:    l.Quantity,
		}
	}
	current := make([]reconcile.CurrentItem, len(snap.Items))
	for i, item := range snap.Items {
		current[i] = reconcile.CurrentItem{
			ProductID: item.ID,
			CartKey:   item.Key,
			Quantity:  item.Quantity,
		}
	}

	// Remove → update → add. Every mutation returns the full cart, so the
	// last response is the authoritative snapshot and no refetch is needed.
	diff := reconcile.DiffItems(current, desired)
	for _, rm := range diff.ToRemove {
		if snap, err = e.api.RemoveItem(ctx, e.tokens, rm.CartKey); err != nil {
			return err
		}
		if e.stale(ticket) {
			return model.ErrSuperseded
		}
	}
	for _, up := range diff.ToUpdate {
		if snap, err = e.api.UpdateItem(ctx, e.tokens, up.CartKey, up.NewQuantity); err != nil {
			return err
		}
		if e.stale(ticket) {
			return model.ErrSuperseded
		}
	}
	for _, add := range diff.ToAdd {
		id := add.VariationID
		if id == 0 {
			id = add.ProductID
		}
		if snap, err = e.api.AddItem(ctx, e.tokens, id, add.Quantity); err != nil {
			return err
		}
		if e.stale(ticket) {
			return model.ErrSuperseded
		}
	}

	// Coupons reconcile after items so discounts compute over the final
	// contents. A rejected coupon is reported but does not fail the pass;
	// the snapshot fold clears it from the ledger so it is not retried.
	var couponErr error
	currentCodes := make([]string, len(snap.Coupons))
	for i, coupon := range snap.Coupons {
		currentCodes[i] = coupon.Code
	}
	var desiredCodes []string
	if code := e.store.Coupon(); code != "" {
		desiredCodes = []string{code}
	}
	cdiff := reconcile.DiffCoupons(currentCodes, desiredCodes)
	for _, code := range cdiff.ToRemove {
		if snap, err = e.api.RemoveCoupon(ctx, e.tokens, code); err != nil {
			return err
		}
		if e.stale(ticket) {
			return model.ErrSuperseded
		}
	}
	for _, code := range cdiff.ToApply {
		next, err := e.api.ApplyCoupon(ctx, e.tokens, code)
		if err != nil {
			if !errors.Is(err, model.ErrInvalidRequest) {
				return err
			}
			couponErr = err
			continue
		}
		snap = next
		if e.stale(ticket) {
			return model.ErrSuperseded
		}
	}

	if e.rates != nil {
		reselected, err := e.rates.Reconcile(ctx, e.tokens, snap)
		if err != nil {
			e.logger.Warn("shipping rate reconcile failed", "error", err)
		} else if reselected != nil {
			snap = reselected
		}
		if e.stale(ticket) {
			return model.ErrSuperseded
		}
	}

	if !e.apply(ctx, ticket, snap) {
		return model.ErrSuperseded
	}
	return couponErr
}

// apply folds the snapshot into the ledger unless a newer pass has started.
// The mutex makes the ticket check and the fold atomic with respect to
// concurrent passes.
func (e *Engine) apply(ctx context.Context, ticket uint64, snap *woocommerce.WooCartResponse) bool {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	if e.stale(ticket) {
		return false
	}

	items := make([]cart.SnapshotItem, len(snap.Items))
	for i, item := range snap.Items {
		items[i] = cart.SnapshotItem{
			StoreKey:  item.Key,
			ProductID: item.ID,
			Quantity:  item.Quantity,
			Name:      item.Name,
			Price:     item.Prices.Price,
			Limits: model.QuantityLimits{
				Min:      item.QuantityLimits.Minimum,
				Max:      item.QuantityLimits.Maximum,
				Step:     item.QuantityLimits.MultipleOf,
				Editable: item.QuantityLimits.Editable,
			},
		}
	}
	var coupon string
	if len(snap.Coupons) > 0 {
		coupon = snap.Coupons[0].Code
	}
	e.store.ApplySnapshot(ctx, TotalsFromWoo(snap.Totals), items, coupon)
	return true
}

// TotalsFromWoo converts Store API minor-unit totals to the major-unit
// view the ledger holds.
func TotalsFromWoo(t woocommerce.WooTotals) *model.CartTotals {
	exp := t.CurrencyMinorUnit
	return &model.CartTotals{
		Currency: t.CurrencyCode,
		Symbol:   t.CurrencySymbol,
		Subtotal: model.MinorToMajor(t.TotalItems, exp),
		Shipping: model.MinorToMajor(t.TotalShipping, exp),
		Discount: model.MinorToMajor(t.TotalDiscount, exp),
		Tax:      model.MinorToMajor(t.TotalTax, exp),
		Total:    model.MinorToMajor(t.TotalPrice, exp),
	}
}

// userMessage extracts a message safe to show the visitor.
func userMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Couldn't update your cart. Please try again."
}
