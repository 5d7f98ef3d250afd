package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/model"
	"storefront/internal/reconcile"
	cartsync "storefront/internal/sync"
	"storefront/internal/woocommerce"
)

// cartLineView is one ledger line as served to clients.
type cartLineView struct {
	Key         string               `json:"key"`
	ProductID   int                  `json:"product_id"`
	VariationID int                  `json:"variation_id,omitempty"`
	Attributes  map[string]string    `json:"attributes,omitempty"`
	Quantity    int                  `json:"quantity"`
	Name        string               `json:"name"`
	Price       string               `json:"price"` // minor units per item
	Image       string               `json:"image,omitempty"`
	Slug        string               `json:"slug,omitempty"`
	Limits      model.QuantityLimits `json:"limits"`
}

// cartView is the session cart as served to clients. Totals are the last
// backend-confirmed figures and disappear while a sync is pending; the
// minor-unit subtotal estimate fills the gap.
type cartView struct {
	Lines            []cartLineView    `json:"lines"`
	Count            int               `json:"count"`
	Coupon           string            `json:"coupon,omitempty"`
	Totals           *model.CartTotals `json:"totals,omitempty"`
	SubtotalEstimate string            `json:"subtotal_estimate,omitempty"`
	Syncing          bool              `json:"syncing"`
	Error            string            `json:"error,omitempty"`
	Notes            []string          `json:"notes,omitempty"`
}

func (h *Handler) cartView(rt *Runtime, notes ...string) cartView {
	lines := rt.Cart.Lines()
	views := make([]cartLineView, len(lines))
	for i, l := range lines {
		views[i] = cartLineView{
			Key:         l.Key,
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Attributes:  l.Attributes,
			Quantity:    l.Quantity,
			Name:        l.Name,
			Price:       l.Price,
			Image:       l.Image,
			Slug:        l.Slug,
			Limits:      l.Limits,
		}
	}
	view := cartView{
		Lines:   views,
		Count:   rt.Cart.Count(),
		Coupon:  rt.Cart.Coupon(),
		Totals:  rt.Cart.Totals(),
		Syncing: rt.Engine.Syncing(),
		Error:   rt.Engine.Err(),
		Notes:   notes,
	}
	if view.Totals == nil && len(lines) > 0 {
		view.SubtotalEstimate = strconv.FormatInt(rt.Cart.Subtotal(), 10)
	}
	return view
}

// handleGetCart returns the current ledger view.
// GET /api/cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Stale totals mean a local edit has not been pushed yet; kick a sync
	// so the next poll converges.
	if rt.Cart.Totals() == nil && len(rt.Cart.Lines()) > 0 {
		rt.Engine.Schedule()
	}
	h.writeJSON(w, http.StatusOK, h.cartView(rt))
}

type addItemRequest struct {
	ProductID   int               `json:"product_id"`
	VariationID int               `json:"variation_id"`
	Attributes  map[string]string `json:"attributes"`
	Quantity    int               `json:"quantity"`
	Name        string            `json:"name"`
	Price       string            `json:"price"` // minor units per item
	Image       string            `json:"image"`
	Slug        string            `json:"slug"`
}

// handleAddItem merges a line into the ledger and schedules a sync.
// POST /api/cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.ProductID <= 0 {
		h.writeError(w, model.NewValidationError("product_id", "product_id is required"))
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	rt.Cart.Add(r.Context(), cart.Line{
		ProductID:   req.ProductID,
		VariationID: req.VariationID,
		Attributes:  req.Attributes,
		Quantity:    req.Quantity,
		Name:        req.Name,
		Price:       req.Price,
		Image:       req.Image,
		Slug:        req.Slug,
	})
	rt.Engine.Schedule()
	h.writeJSON(w, http.StatusOK, h.cartView(rt))
}

// handleUpdateItem sets a line's quantity; zero removes it. With "fast" set
// the confirmed totals are kept on screen while the sync converges, which
// is the path quantity steppers use.
// PATCH /api/cart/items/{key}
func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Quantity int  `json:"quantity"`
		Fast     bool `json:"fast"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	var note string
	if req.Fast {
		_, note = rt.Cart.SetQuantityFast(r.Context(), r.PathValue("key"), req.Quantity)
	} else {
		_, note = rt.Cart.SetQuantity(r.Context(), r.PathValue("key"), req.Quantity)
	}
	rt.Engine.Schedule()

	var notes []string
	if note != "" {
		notes = append(notes, note)
	}
	h.writeJSON(w, http.StatusOK, h.cartView(rt, notes...))
}

// handleRemoveItem deletes a ledger line.
// DELETE /api/cart/items/{key}
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rt.Cart.Remove(r.Context(), r.PathValue("key"))
	rt.Engine.Schedule()
	h.writeJSON(w, http.StatusOK, h.cartView(rt))
}

// handleSyncCart forces an awaited reconciliation pass. Sync failures are
// reported in the view, not as HTTP errors; the ledger stays editable.
// POST /api/cart/sync
func (h *Handler) handleSyncCart(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Superseded passes are fine; a newer one carried the state forward.
	_ = rt.Engine.Sync(r.Context())
	h.writeJSON(w, http.StatusOK, h.cartView(rt))
}

// handleApplyCoupon records the desired coupon and reconciles immediately
// so the response reflects acceptance or rejection.
// POST /api/cart/apply-coupon
func (h *Handler) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		h.writeError(w, model.NewValidationError("code", "coupon code is required"))
		return
	}

	rt.Cart.SetCoupon(r.Context(), code)
	_ = rt.Engine.Sync(r.Context())
	h.writeJSON(w, http.StatusOK, h.cartView(rt))
}

// POST /api/cart/remove-coupon
func (h *Handler) handleRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rt.Cart.SetCoupon(r.Context(), "")
	_ = rt.Engine.Sync(r.Context())
	h.writeJSON(w, http.StatusOK, h.cartView(rt))
}

// ratesView carries the shipping packages and totals returned by a direct
// backend call, straight off the snapshot.
type ratesView struct {
	Packages []woocommerce.WooShippingPkg `json:"packages"`
	Totals   *model.CartTotals            `json:"totals"`
}

func snapshotRatesView(snap *woocommerce.WooCartResponse) ratesView {
	return ratesView{
		Packages: snap.ShippingRates,
		Totals:   cartsync.TotalsFromWoo(snap.Totals),
	}
}

// handleUpdateCustomer pushes a destination address to the backend and
// returns the refreshed shipping rates. The ledger totals catch up on the
// scheduled sync.
// POST /api/cart/update-customer
func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Address model.Address `json:"address"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	addr := checkout.WireAddress(&req.Address)
	snap, err := h.backend.UpdateCustomer(r.Context(), rt.Tokens, addr, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rt.Engine.Schedule()
	h.writeJSON(w, http.StatusOK, snapshotRatesView(snap))
}

// handleSelectShippingRate selects a rate on the backend. Clients send the
// currently selected rate id so a no-op selection never hits the network.
// POST /api/cart/select-shipping-rate
func (h *Handler) handleSelectShippingRate(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		PackageID     int    `json:"package_id"`
		RateID        string `json:"rate_id"`
		CurrentRateID string `json:"current_rate_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if !reconcile.ShippingRateChanged(req.CurrentRateID, req.RateID) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	snap, err := h.backend.SelectShippingRate(r.Context(), rt.Tokens, req.PackageID, req.RateID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("shipping rate selected",
		slog.Int("package_id", req.PackageID), slog.String("rate_id", req.RateID))
	rt.Engine.Schedule()
	h.writeJSON(w, http.StatusOK, snapshotRatesView(snap))
}
