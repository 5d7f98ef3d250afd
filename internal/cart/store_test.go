package cart

import (
	"context"
	"sync"
	"testing"

	"storefront/internal/model"
	"storefront/internal/session"
)

func newTestStore(t *testing.T) (*Store, session.Store) {
	t.Helper()
	sess := session.NewMemoryStore(0)
	return New(sess, "sid1"), sess
}

func TestLineKey(t *testing.T) {
	tests := []struct {
		name        string
		productID   int
		variationID int
		attrs       map[string]string
		want        string
	}{
		{"simple product", 42, 0, nil, "42:0"},
		{"variation", 42, 7, nil, "42:7"},
		{"attrs sorted", 42, 7, map[string]string{"size": "M", "color": "red"}, "42:7:color=red:size=M"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineKey(tt.productID, tt.variationID, tt.attrs); got != tt.want {
				t.Errorf("LineKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddMergesOnKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.Add(ctx, Line{ProductID: 1, Quantity: 2, Price: "1000"})
	s.Add(ctx, Line{ProductID: 1, Quantity: 3, Price: "1000"})
	s.Add(ctx, Line{ProductID: 1, VariationID: 9, Quantity: 1, Price: "2000"})

	lines := s.Lines()
	if len(lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Errorf("merged quantity = %d, want 5", lines[0].Quantity)
	}
	if s.Count() != 6 {
		t.Errorf("Count = %d, want 6", s.Count())
	}
	if s.Subtotal() != 7000 {
		t.Errorf("Subtotal = %d, want 7000", s.Subtotal())
	}
}

func TestAddDistinguishesAttributes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.Add(ctx, Line{ProductID: 1, Attributes: map[string]string{"size": "S"}, Quantity: 1})
	s.Add(ctx, Line{ProductID: 1, Attributes: map[string]string{"size": "L"}, Quantity: 1})

	if got := len(s.Lines()); got != 2 {
		t.Errorf("len(Lines) = %d, want 2 distinct attribute lines", got)
	}
}

func TestSetQuantityClampsAndNotes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	line := s.Add(ctx, Line{ProductID: 1, Name: "Widget", Quantity: 1, Limits: model.QuantityLimits{Min: 1, Max: 5, Step: 1}})

	applied, note := s.SetQuantity(ctx, line.Key, 99)
	if applied != 5 {
		t.Errorf("applied = %d, want 5", applied)
	}
	if note == "" {
		t.Error("expected a note when the quantity is clamped")
	}

	applied, note = s.SetQuantity(ctx, line.Key, 3)
	if applied != 3 || note != "" {
		t.Errorf("SetQuantity(3) = (%d, %q), want (3, \"\")", applied, note)
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	line := s.Add(ctx, Line{ProductID: 1, Quantity: 2})
	s.SetQuantity(ctx, line.Key, 0)
	if len(s.Lines()) != 0 {
		t.Error("line survived SetQuantity(0)")
	}
}

func TestMutationsInvalidateTotals(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	line := s.Add(ctx, Line{ProductID: 1, Quantity: 1})
	s.ApplySnapshot(ctx, &model.CartTotals{Total: 100}, nil, "")
	if s.Totals() == nil {
		t.Fatal("Totals nil after snapshot")
	}

	s.SetQuantity(ctx, line.Key, 2)
	if s.Totals() != nil {
		t.Error("Totals survived a quantity edit")
	}

	s.ApplySnapshot(ctx, &model.CartTotals{Total: 200}, nil, "")
	s.Remove(ctx, line.Key)
	if s.Totals() != nil {
		t.Error("Totals survived a removal")
	}
}

func TestApplySnapshotFoldsBackendState(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.Add(ctx, Line{ProductID: 10, Quantity: 1, Price: "1000"})
	s.Add(ctx, Line{ProductID: 20, VariationID: 25, Quantity: 2, Price: "2000"})

	s.ApplySnapshot(ctx, &model.CartTotals{Currency: "PHP", Total: 50}, []SnapshotItem{
		{StoreKey: "aaa", ProductID: 10, Quantity: 1, Price: "1100", Name: "Refreshed", Limits: model.QuantityLimits{Min: 1, Max: 3, Step: 1}},
		{StoreKey: "bbb", ProductID: 20, VariationID: 25, Quantity: 2, Price: "2000"},
	}, "SAVE10")

	lines := s.Lines()
	if lines[0].StoreKey != "aaa" || lines[1].StoreKey != "bbb" {
		t.Errorf("store keys = %q, %q, want aaa, bbb", lines[0].StoreKey, lines[1].StoreKey)
	}
	if lines[0].Price != "1100" || lines[0].Name != "Refreshed" {
		t.Errorf("line 0 not refreshed: price=%q name=%q", lines[0].Price, lines[0].Name)
	}
	if lines[0].Limits.Max != 3 {
		t.Errorf("limits not folded: %+v", lines[0].Limits)
	}
	if s.Coupon() != "SAVE10" {
		t.Errorf("Coupon = %q, want SAVE10", s.Coupon())
	}
	if got := s.Totals(); got == nil || got.Total != 50 {
		t.Errorf("Totals = %+v, want Total 50", got)
	}
}

func TestHydrateRunsOnceAndNeverClobbers(t *testing.T) {
	ctx := context.Background()
	sess := session.NewMemoryStore(0)

	// A previous visit persisted one line.
	first := New(sess, "sid1")
	first.Add(ctx, Line{ProductID: 1, Quantity: 2})

	// New store over the same session: edits land before Hydrate completes.
	s := New(sess, "sid1")
	s.Add(ctx, Line{ProductID: 2, Quantity: 1})
	if err := s.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	lines := s.Lines()
	if len(lines) != 1 || lines[0].ProductID != 2 {
		t.Fatalf("hydrate clobbered local edits: %+v", lines)
	}

	// A clean store does pick up the persisted ledger.
	fresh := New(sess, "sid2")
	fresh.Add(ctx, Line{ProductID: 3, Quantity: 1})
	clean := New(sess, "sid1")
	if err := clean.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	// sid1 was last persisted by s, which held only product 2.
	got := clean.Lines()
	if len(got) != 1 || got[0].ProductID != 2 {
		t.Fatalf("hydrated lines = %+v, want product 2", got)
	}

	// Second Hydrate is a no-op.
	clean.Clear(ctx)
	if err := clean.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if len(clean.Lines()) != 0 {
		t.Error("second Hydrate reloaded state")
	}
}

// slowStore reads the stored value immediately but blocks the read from
// returning until released, like a session backend with a slow network.
type slowStore struct {
	session.Store
	reading chan struct{} // closed when the first Get is in flight
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	v, ok, err := s.Store.Get(ctx, sid, key)
	s.once.Do(func() { close(s.reading) })
	<-s.release
	return v, ok, err
}

func TestHydrateSlowLoadDoesNotLoseCart(t *testing.T) {
	ctx := context.Background()
	sess := session.NewMemoryStore(0)

	// A previous visit persisted one line.
	prev := New(sess, "sid1")
	prev.Add(ctx, Line{ProductID: 10, Quantity: 1})

	slow := &slowStore{Store: sess, reading: make(chan struct{}), release: make(chan struct{})}
	s := New(slow, "sid1")

	done := make(chan error, 1)
	go func() { done <- s.Hydrate(ctx) }()
	<-slow.reading

	// The load has not completed, so the flag must still read false:
	// "not loaded" and "empty" stay distinguishable.
	if s.Hydrated() {
		t.Error("Hydrated() = true while the load is still in flight")
	}

	// Another request edits the cart while the load is blocked.
	s.Add(ctx, Line{ProductID: 99, Quantity: 1})

	close(slow.release)
	if err := <-done; err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if !s.Hydrated() {
		t.Error("Hydrated() = false after the load completed")
	}

	ids := make(map[int]bool)
	for _, l := range s.Lines() {
		ids[l.ProductID] = true
	}
	if len(ids) != 2 || !ids[10] || !ids[99] {
		t.Fatalf("lines = %v, want products 10 and 99 merged", ids)
	}

	// The merged ledger was written back: a fresh store sees both lines.
	fresh := New(sess, "sid1")
	if err := fresh.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if got := len(fresh.Lines()); got != 2 {
		t.Fatalf("persisted lines = %d, want 2", got)
	}
}

func TestSetQuantityFastKeepsTotals(t *testing.T) {
	ctx := context.Background()
	s, sess := newTestStore(t)

	line := s.Add(ctx, Line{ProductID: 1, Name: "Widget", Quantity: 1, Limits: model.QuantityLimits{Min: 1, Max: 5, Step: 1}})
	s.ApplySnapshot(ctx, &model.CartTotals{Total: 100}, nil, "")

	applied, note := s.SetQuantityFast(ctx, line.Key, 3)
	if applied != 3 || note != "" {
		t.Errorf("SetQuantityFast(3) = (%d, %q), want (3, \"\")", applied, note)
	}
	if s.Totals() == nil {
		t.Error("Totals blanked by the fast path")
	}
	if s.Lines()[0].Quantity != 3 {
		t.Errorf("quantity = %d, want 3", s.Lines()[0].Quantity)
	}

	// The change still persists.
	fresh := New(sess, "sid1")
	if err := fresh.Hydrate(ctx); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if got := fresh.Lines()[0].Quantity; got != 3 {
		t.Errorf("persisted quantity = %d, want 3", got)
	}

	// Zero clamps to the minimum instead of removing the line.
	applied, _ = s.SetQuantityFast(ctx, line.Key, 0)
	if applied != 1 || len(s.Lines()) != 1 {
		t.Errorf("SetQuantityFast(0) = %d with %d lines, want clamp to 1", applied, len(s.Lines()))
	}
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var calls int
	unsub := s.Subscribe(func() { calls++ })

	line := s.Add(ctx, Line{ProductID: 1, Quantity: 1})
	s.SetQuantity(ctx, line.Key, 2)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	unsub()
	s.Remove(ctx, line.Key)
	if calls != 2 {
		t.Errorf("calls after unsubscribe = %d, want 2", calls)
	}
}

func TestTokenManager(t *testing.T) {
	ctx := context.Background()
	sess := session.NewMemoryStore(0)
	m := NewTokenManager(sess, "sid1")

	if got := m.Token(ctx); got != "" {
		t.Errorf("initial Token = %q, want empty", got)
	}

	m.SetToken(ctx, "tok1")
	if got := m.Token(ctx); got != "tok1" {
		t.Errorf("Token = %q, want tok1", got)
	}

	// Empty rotation must not erase the live token.
	m.SetToken(ctx, "")
	if got := m.Token(ctx); got != "tok1" {
		t.Errorf("Token after empty SetToken = %q, want tok1", got)
	}

	// A fresh manager over the same session sees the persisted token.
	if got := NewTokenManager(sess, "sid1").Token(ctx); got != "tok1" {
		t.Errorf("persisted Token = %q, want tok1", got)
	}

	m.Clear(ctx)
	if got := NewTokenManager(sess, "sid1").Token(ctx); got != "" {
		t.Errorf("Token after Clear = %q, want empty", got)
	}
}
