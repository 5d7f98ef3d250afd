// Package shipping decides which shipping rate a cart should use. Carts at
// or above the free-shipping threshold get the free rate selected
// automatically; carts below it get a paid rate, so an abandoned free
// selection never lingers after items are removed.
package shipping

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"storefront/internal/model"
	"storefront/internal/woocommerce"
)

// maxAttempts bounds how often the selector retries the same target rate.
// WooCommerce occasionally ignores a selection (plugin interference,
// recalculation races); retrying forever would hammer the backend.
const maxAttempts = 2

// RateAPI is the slice of the Store API client the selector needs.
type RateAPI interface {
	SelectShippingRate(ctx context.Context, tokens woocommerce.TokenStore, packageID int, rateID string) (*woocommerce.WooCartResponse, error)
}

// Selector picks the correct shipping rate for one session's cart. It
// implements the sync engine's RateReconciler.
type Selector struct {
	api            RateAPI
	thresholdMinor int64  // free shipping at or above this item subtotal
	freeMethodID   string // usually "free_shipping"
	logger         *slog.Logger

	mu            sync.Mutex
	pendingRateID string
	attempts      int
}

// NewSelector creates a Selector. thresholdMinor is in minor currency
// units; zero disables threshold gating (free rate always preferred when
// offered).
func NewSelector(api RateAPI, thresholdMinor int64, freeMethodID string, logger *slog.Logger) *Selector {
	if freeMethodID == "" {
		freeMethodID = "free_shipping"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		api:            api,
		thresholdMinor: thresholdMinor,
		freeMethodID:   freeMethodID,
		logger:         logger,
	}
}

// Reconcile inspects the snapshot's first shipping package and selects the
// rate the cart should have. Returns the post-selection snapshot when a
// selection was issued, (nil, nil) when the selection is already correct or
// no action is possible.
//
// Repeated failures to land the same target are capped at maxAttempts; the
// counter resets when the target changes or a selection is confirmed.
func (s *Selector) Reconcile(ctx context.Context, tokens woocommerce.TokenStore, snap *woocommerce.WooCartResponse) (*woocommerce.WooCartResponse, error) {
	if snap == nil || len(snap.ShippingRates) == 0 {
		return nil, nil
	}
	pkg := snap.ShippingRates[0]
	if len(pkg.ShippingRates) == 0 {
		return nil, nil
	}

	desired := s.desiredRate(snap.Totals, pkg.ShippingRates)
	if desired == nil {
		return nil, nil
	}

	s.mu.Lock()
	if desired.Selected {
		// Confirmed; clear the guard.
		s.pendingRateID = ""
		s.attempts = 0
		s.mu.Unlock()
		return nil, nil
	}
	if desired.RateID != s.pendingRateID {
		s.pendingRateID = desired.RateID
		s.attempts = 0
	}
	if s.attempts >= maxAttempts {
		s.mu.Unlock()
		return nil, nil
	}
	s.attempts++
	s.mu.Unlock()

	s.logger.Debug("selecting shipping rate",
		"rate_id", desired.RateID, "method_id", desired.MethodID)
	return s.api.SelectShippingRate(ctx, tokens, pkg.PackageID, desired.RateID)
}

// desiredRate returns the rate the cart should have selected.
func (s *Selector) desiredRate(totals woocommerce.WooTotals, rates []woocommerce.WooShippingRate) *woocommerce.WooShippingRate {
	free := FindFreeRate(rates, s.freeMethodID)

	if free != nil && s.eligible(totals) {
		return free
	}

	// Below threshold (or no free rate offered): a free selection must not
	// stick. Prefer the currently selected paid rate, else the first paid
	// rate on offer.
	for i := range rates {
		if rates[i].Selected && !isFree(&rates[i], s.freeMethodID) {
			return &rates[i]
		}
	}
	for i := range rates {
		if !isFree(&rates[i], s.freeMethodID) {
			return &rates[i]
		}
	}
	// Only free rates are offered but the cart is below threshold; leave
	// the selection alone.
	return nil
}

// eligible reports whether the item subtotal qualifies for free shipping.
func (s *Selector) eligible(totals woocommerce.WooTotals) bool {
	if s.thresholdMinor <= 0 {
		return true
	}
	return model.ParseMinorUnits(totals.TotalItems) >= s.thresholdMinor
}

// FindFreeRate returns the free rate among rates: matched by method id
// first, then by a "free" name as a fallback for renamed methods.
func FindFreeRate(rates []woocommerce.WooShippingRate, freeMethodID string) *woocommerce.WooShippingRate {
	for i := range rates {
		if rates[i].MethodID == freeMethodID {
			return &rates[i]
		}
	}
	for i := range rates {
		if strings.Contains(strings.ToLower(rates[i].Name), "free") {
			return &rates[i]
		}
	}
	return nil
}

func isFree(rate *woocommerce.WooShippingRate, freeMethodID string) bool {
	return rate.MethodID == freeMethodID ||
		strings.Contains(strings.ToLower(rate.Name), "free")
}
