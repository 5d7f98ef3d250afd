// Package cart holds the session-authoritative cart ledger. The ledger is
// the source of truth for which lines the visitor wants and at what
// quantity; the WooCommerce backend is the source of truth for pricing,
// stock, and totals. The sync engine reconciles the two.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"storefront/internal/model"
	"storefront/internal/session"
)

const stateKey = "cart"

// Line is one entry in the cart ledger.
type Line struct {
	Key         string            `json:"key"`
	ProductID   int               `json:"product_id"`
	VariationID int               `json:"variation_id"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Quantity    int               `json:"quantity"`

	// Display fields captured at add time and refreshed from backend
	// snapshots.
	Name  string `json:"name"`
	Price string `json:"price"` // minor units per item
	Image string `json:"image,omitempty"`
	Slug  string `json:"slug,omitempty"`

	// StoreKey is the backend cart item key for this line, empty until the
	// line has been pushed upstream at least once.
	StoreKey string `json:"store_key,omitempty"`

	Limits model.QuantityLimits `json:"limits"`
}

// LineKey builds the composite identity for a product/variation/attribute
// combination. Two adds with the same key merge into one line.
func LineKey(productID, variationID int, attrs map[string]string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(productID))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(variationID))
	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(':')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(attrs[k])
		}
	}
	return b.String()
}

// Store is the per-session cart ledger. All methods are safe for concurrent
// use. Mutations persist the ledger to the session store and notify
// subscribers after the lock is released.
type Store struct {
	mu       sync.RWMutex
	sess     session.Store
	sid      string
	lines    []Line
	coupon   string
	totals   *model.CartTotals
	hydrated bool

	hydrateOnce sync.Once
	hydrateErr  error

	subMu sync.Mutex
	subs  map[int]func()
	nextSub int
}

// New creates an empty Store bound to a session. Call Hydrate before first
// use to load any persisted ledger.
func New(sess session.Store, sid string) *Store {
	return &Store{sess: sess, sid: sid, subs: make(map[int]func())}
}

type persistedState struct {
	Lines  []Line `json:"lines"`
	Coupon string `json:"coupon,omitempty"`
}

// Hydrate loads the persisted ledger. The load runs once per Store;
// concurrent callers block until it completes, so nobody can observe
// Hydrated() == true before the persisted lines are in memory. Lines added
// while the load was in flight are kept and merged with the stored ones.
func (s *Store) Hydrate(ctx context.Context) error {
	s.hydrateOnce.Do(func() { s.hydrateErr = s.load(ctx) })
	return s.hydrateErr
}

func (s *Store) load(ctx context.Context) error {
	raw, ok, err := s.sess.Get(ctx, s.sid, stateKey)
	if err != nil {
		s.mu.Lock()
		s.hydrated = true
		s.mu.Unlock()
		return fmt.Errorf("hydrate cart: %w", err)
	}
	var state persistedState
	if ok && raw != "" {
		// Corrupt state is discarded rather than blocking the session.
		_ = json.Unmarshal([]byte(raw), &state)
	}

	s.mu.Lock()
	hadEdits := len(s.lines) > 0 || s.coupon != ""
	merged := false
	for _, line := range state.Lines {
		if s.indexLocked(line.Key) < 0 {
			s.lines = append(s.lines, line)
			merged = true
		}
	}
	if s.coupon == "" {
		s.coupon = state.Coupon
	}
	s.hydrated = true
	s.mu.Unlock()

	// An edit racing the load may have persisted only itself; write the
	// merged ledger back so neither side is lost.
	if merged && hadEdits {
		s.persist(ctx)
	}
	if merged {
		s.notify()
	}
	return nil
}

// Hydrated reports whether Hydrate has completed.
func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Add merges a line into the ledger. An existing line with the same
// composite key gains the added quantity; otherwise the line is appended.
// Totals are invalidated.
func (s *Store) Add(ctx context.Context, line Line) Line {
	if line.Key == "" {
		line.Key = LineKey(line.ProductID, line.VariationID, line.Attributes)
	}
	s.mu.Lock()
	if i := s.indexLocked(line.Key); i >= 0 {
		s.lines[i].Quantity = s.lines[i].Limits.Clamp(s.lines[i].Quantity + line.Quantity)
		line = s.lines[i]
	} else {
		line.Quantity = line.Limits.Clamp(line.Quantity)
		s.lines = append(s.lines, line)
	}
	s.totals = nil
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
	return line
}

// Remove deletes the line with the given composite key. Unknown keys are
// ignored.
func (s *Store) Remove(ctx context.Context, key string) {
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.totals = nil
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
}

// SetQuantity sets a line's quantity, clamped to its limits. It returns the
// quantity actually applied and a human-readable note when the request was
// adjusted. A quantity of zero or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, key string, qty int) (applied int, note string) {
	if qty <= 0 {
		s.Remove(ctx, key)
		return 0, ""
	}
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return 0, ""
	}
	applied = s.lines[i].Limits.Clamp(qty)
	if applied != qty {
		note = fmt.Sprintf("Quantity for %q adjusted to %d.", s.lines[i].Name, applied)
	}
	if s.lines[i].Quantity == applied {
		s.mu.Unlock()
		return applied, note
	}
	s.lines[i].Quantity = applied
	s.totals = nil
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
	return applied, note
}

// SetQuantityFast sets a line's quantity without invalidating the totals
// cache, so quantity steppers keep showing the last confirmed totals while
// the debounced sync converges. Quantities below one clamp to the line's
// minimum instead of removing the line.
func (s *Store) SetQuantityFast(ctx context.Context, key string, qty int) (applied int, note string) {
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return 0, ""
	}
	applied = s.lines[i].Limits.Clamp(qty)
	if applied != qty && qty > 0 {
		note = fmt.Sprintf("Quantity for %q adjusted to %d.", s.lines[i].Name, applied)
	}
	if s.lines[i].Quantity == applied {
		s.mu.Unlock()
		return applied, note
	}
	s.lines[i].Quantity = applied
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
	return applied, note
}

// Clear empties the ledger, the coupon, and the totals.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.lines = nil
	s.coupon = ""
	s.totals = nil
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
}

// Lines returns a copy of the ledger in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the local minor-unit estimate of the item subtotal.
// It is a display placeholder until backend totals arrive.
func (s *Store) Subtotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, l := range s.lines {
		sum += model.ParseMinorUnits(l.Price) * int64(l.Quantity)
	}
	return sum
}

// Coupon returns the desired coupon code, empty when none.
func (s *Store) Coupon() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coupon
}

// SetCoupon records the coupon the visitor wants applied. Totals are
// invalidated; the sync engine reconciles the backend.
func (s *Store) SetCoupon(ctx context.Context, code string) {
	code = strings.TrimSpace(code)
	s.mu.Lock()
	if s.coupon == code {
		s.mu.Unlock()
		return
	}
	s.coupon = code
	s.totals = nil
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
}

// Totals returns the last backend-confirmed totals, or nil when a local
// edit has invalidated them.
func (s *Store) Totals() *model.CartTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.totals == nil {
		return nil
	}
	t := *s.totals
	return &t
}

// ApplySnapshot folds a backend cart snapshot into the ledger: totals,
// per-line backend keys, refreshed prices and limits, and the confirmed
// coupon. Lines are matched by backend identity (variation id when set,
// else product id).
func (s *Store) ApplySnapshot(ctx context.Context, totals *model.CartTotals, items []SnapshotItem, coupon string) {
	s.mu.Lock()
	byIdentity := make(map[int]*SnapshotItem, len(items))
	for i := range items {
		byIdentity[items[i].Identity()] = &items[i]
	}
	for i := range s.lines {
		id := s.lines[i].VariationID
		if id == 0 {
			id = s.lines[i].ProductID
		}
		if it, ok := byIdentity[id]; ok {
			s.lines[i].StoreKey = it.StoreKey
			if it.Price != "" {
				s.lines[i].Price = it.Price
			}
			if it.Name != "" {
				s.lines[i].Name = it.Name
			}
			s.lines[i].Limits = it.Limits
		}
	}
	s.totals = totals
	s.coupon = coupon
	s.mu.Unlock()
	s.persist(ctx)
	s.notify()
}

// SnapshotItem is the per-line slice of a backend snapshot that the ledger
// folds in.
type SnapshotItem struct {
	StoreKey    string
	ProductID   int
	VariationID int
	Quantity    int
	Name        string
	Price       string
	Limits      model.QuantityLimits
}

// Identity returns the backend matching identity for the item.
func (it *SnapshotItem) Identity() int {
	if it.VariationID != 0 {
		return it.VariationID
	}
	return it.ProductID
}

// Subscribe registers fn to run after every mutation. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) indexLocked(key string) int {
	for i, l := range s.lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) {
	s.mu.RLock()
	state := persistedState{Lines: s.lines, Coupon: s.coupon}
	s.mu.RUnlock()
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	// Persistence failures are tolerated; the ledger stays usable in memory.
	_ = s.sess.Set(ctx, s.sid, stateKey, string(raw))
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
