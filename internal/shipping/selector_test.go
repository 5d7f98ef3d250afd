package shipping

import (
	"context"
	"testing"

	"storefront/internal/woocommerce"
)

type fakeRateAPI struct {
	calls    []string
	honor    bool // whether selections actually stick
	lastSnap *woocommerce.WooCartResponse
}

func (f *fakeRateAPI) SelectShippingRate(_ context.Context, _ woocommerce.TokenStore, packageID int, rateID string) (*woocommerce.WooCartResponse, error) {
	f.calls = append(f.calls, rateID)
	snap := cloneSnap(f.lastSnap)
	if f.honor {
		for i := range snap.ShippingRates[0].ShippingRates {
			rate := &snap.ShippingRates[0].ShippingRates[i]
			rate.Selected = rate.RateID == rateID
		}
	}
	f.lastSnap = snap
	return snap, nil
}

func cloneSnap(snap *woocommerce.WooCartResponse) *woocommerce.WooCartResponse {
	out := *snap
	out.ShippingRates = make([]woocommerce.WooShippingPkg, len(snap.ShippingRates))
	for i, pkg := range snap.ShippingRates {
		out.ShippingRates[i] = pkg
		out.ShippingRates[i].ShippingRates = make([]woocommerce.WooShippingRate, len(pkg.ShippingRates))
		copy(out.ShippingRates[i].ShippingRates, pkg.ShippingRates)
	}
	return &out
}

func snapWith(subtotalMinor string, rates ...woocommerce.WooShippingRate) *woocommerce.WooCartResponse {
	return &woocommerce.WooCartResponse{
		Totals: woocommerce.WooTotals{
			CurrencyCode:      "PHP",
			CurrencyMinorUnit: 2,
			TotalItems:        subtotalMinor,
		},
		ShippingRates: []woocommerce.WooShippingPkg{
			{PackageID: 0, ShippingRates: rates},
		},
	}
}

var (
	paidRate = woocommerce.WooShippingRate{RateID: "flat_rate:1", Name: "Flat rate", MethodID: "flat_rate", Price: "8900"}
	freeRate = woocommerce.WooShippingRate{RateID: "free_shipping:2", Name: "Free shipping", MethodID: "free_shipping", Price: "0"}
)

func selected(rate woocommerce.WooShippingRate) woocommerce.WooShippingRate {
	rate.Selected = true
	return rate
}

func newTestSelector(api *fakeRateAPI) *Selector {
	return NewSelector(api, 300000, "free_shipping", nil)
}

func TestSelectsFreeRateAboveThreshold(t *testing.T) {
	api := &fakeRateAPI{honor: true}
	s := newTestSelector(api)
	snap := snapWith("350000", selected(paidRate), freeRate)
	api.lastSnap = snap

	out, err := s.Reconcile(context.Background(), nil, snap)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(api.calls) != 1 || api.calls[0] != "free_shipping:2" {
		t.Fatalf("calls = %v, want one free_shipping:2 selection", api.calls)
	}
	if out == nil || !out.ShippingRates[0].ShippingRates[1].Selected {
		t.Error("returned snapshot does not have the free rate selected")
	}

	// Next pass confirms and does nothing further.
	if again, _ := s.Reconcile(context.Background(), nil, out); again != nil {
		t.Error("second pass issued another selection")
	}
	if len(api.calls) != 1 {
		t.Errorf("calls = %v, want exactly 1", api.calls)
	}
}

func TestKeepsPaidRateBelowThreshold(t *testing.T) {
	api := &fakeRateAPI{honor: true}
	s := newTestSelector(api)
	snap := snapWith("150000", selected(paidRate), freeRate)
	api.lastSnap = snap

	if out, _ := s.Reconcile(context.Background(), nil, snap); out != nil {
		t.Error("selection issued though the paid rate is already correct")
	}
	if len(api.calls) != 0 {
		t.Errorf("calls = %v, want none", api.calls)
	}
}

func TestDowngradesWhenCartFallsBelowThreshold(t *testing.T) {
	api := &fakeRateAPI{honor: true}
	s := newTestSelector(api)
	// Free is selected but the cart no longer qualifies.
	snap := snapWith("150000", paidRate, selected(freeRate))
	api.lastSnap = snap

	out, err := s.Reconcile(context.Background(), nil, snap)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(api.calls) != 1 || api.calls[0] != "flat_rate:1" {
		t.Fatalf("calls = %v, want one flat_rate:1 selection", api.calls)
	}
	if !out.ShippingRates[0].ShippingRates[0].Selected {
		t.Error("paid rate not selected after downgrade")
	}
}

func TestRetryIsBounded(t *testing.T) {
	api := &fakeRateAPI{honor: false} // backend ignores every selection
	s := newTestSelector(api)
	snap := snapWith("350000", selected(paidRate), freeRate)
	api.lastSnap = snap

	for i := 0; i < 5; i++ {
		out, err := s.Reconcile(context.Background(), nil, api.lastSnap)
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if out == nil {
			break
		}
	}
	if len(api.calls) != 2 {
		t.Errorf("calls = %d, want 2 (bounded retry)", len(api.calls))
	}
}

func TestTargetChangeResetsRetryBudget(t *testing.T) {
	api := &fakeRateAPI{honor: false}
	s := newTestSelector(api)

	// Burn the budget on the free rate.
	above := snapWith("350000", selected(paidRate), freeRate)
	api.lastSnap = above
	for i := 0; i < 3; i++ {
		s.Reconcile(context.Background(), nil, above)
	}
	if len(api.calls) != 2 {
		t.Fatalf("calls = %d, want 2 after capped retries", len(api.calls))
	}

	// The cart drops below threshold: new target, fresh budget.
	below := snapWith("100000", paidRate, selected(freeRate))
	api.lastSnap = below
	if out, _ := s.Reconcile(context.Background(), nil, below); out == nil {
		t.Fatal("no selection issued for new target")
	}
	if len(api.calls) != 3 || api.calls[2] != "flat_rate:1" {
		t.Errorf("calls = %v, want a third call targeting flat_rate:1", api.calls)
	}
}

func TestFreeRateMatchedByName(t *testing.T) {
	renamed := woocommerce.WooShippingRate{RateID: "flexible:9", Name: "FREE Delivery Promo", MethodID: "flexible_shipping", Price: "0"}
	rates := []woocommerce.WooShippingRate{paidRate, renamed}

	got := FindFreeRate(rates, "free_shipping")
	if got == nil || got.RateID != "flexible:9" {
		t.Errorf("FindFreeRate = %+v, want flexible:9 by name match", got)
	}
}

func TestOnlyFreeRatesBelowThresholdIsNoOp(t *testing.T) {
	api := &fakeRateAPI{}
	s := newTestSelector(api)
	snap := snapWith("100000", selected(freeRate))
	api.lastSnap = snap

	if out, err := s.Reconcile(context.Background(), nil, snap); out != nil || err != nil {
		t.Errorf("Reconcile = (%v, %v), want (nil, nil)", out, err)
	}
	if len(api.calls) != 0 {
		t.Errorf("calls = %v, want none", api.calls)
	}
}

func TestNoRatesIsNoOp(t *testing.T) {
	api := &fakeRateAPI{}
	s := newTestSelector(api)

	if out, err := s.Reconcile(context.Background(), nil, &woocommerce.WooCartResponse{}); out != nil || err != nil {
		t.Errorf("Reconcile = (%v, %v), want (nil, nil)", out, err)
	}
}
