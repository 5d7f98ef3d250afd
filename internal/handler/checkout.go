package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/model"
)

// handleCheckout places the order for the session cart.
// POST /api/checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rt, sid, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if h.auth != nil {
		req.CustomerID = h.auth.CustomerID(ctx, sid)
	}

	h.logger.InfoContext(ctx, "placing order",
		slog.Int("lines", len(rt.Cart.Lines())),
		slog.Bool("signed_in", req.CustomerID != 0),
	)

	result, err := rt.Checkout.PlaceOrder(ctx, &req)
	if err != nil {
		if errors.Is(err, model.ErrSuperseded) {
			err = model.NewValidationError("cart",
				"Your cart changed while placing the order. Please review and try again.")
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// handleOrderLookup serves a sanitized receipt to callers who can prove
// they own the order.
// GET /api/order?order=&key=|email=
func (h *Handler) handleOrderLookup(w http.ResponseWriter, r *http.Request) {
	rt, _, err := h.runtime(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	q := r.URL.Query()
	orderID, err := strconv.Atoi(q.Get("order"))
	if err != nil || orderID <= 0 {
		h.writeError(w, model.NewValidationError("order", "a numeric order id is required"))
		return
	}

	receipt, err := rt.Checkout.LookupOrder(r.Context(), orderID, q.Get("key"), q.Get("email"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, receipt)
}

// === Sign-in ===

// handleGoogleSignIn exchanges a Google ID token for a session customer
// binding.
// POST /api/auth/google
func (h *Handler) handleGoogleSignIn(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	if sid == "" {
		h.writeError(w, model.NewUnauthorizedError("session cookie required"))
		return
	}
	var req struct {
		Credential string `json:"credential"`
		IDToken    string `json:"id_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	token := req.Credential
	if token == "" {
		token = req.IDToken
	}
	if token == "" {
		h.writeError(w, model.NewValidationError("credential", "an ID token is required"))
		return
	}

	identity, err := h.auth.SignIn(r.Context(), sid, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identity)
}

// POST /api/auth/signout
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	if sid == "" {
		h.writeError(w, model.NewUnauthorizedError("session cookie required"))
		return
	}
	if err := h.auth.SignOut(r.Context(), sid); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Payment bridge ===

// payTemplate opens the gateway URL top-level. Some gateways refuse to run
// inside the storefront's origin, so the redirect happens from a plain
// first-party page.
var payTemplate = template.Must(template.New("pay").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0;url={{.URL}}">
<title>Redirecting to payment</title>
</head>
<body>
<p>Redirecting to payment. <a href="{{.URL}}">Continue</a> if nothing happens.</p>
<script>window.location.replace({{.URL}});</script>
</body>
</html>
`))

// handlePayBridge serves the one-shot payment redirect page. Each URL
// redirects once per session; a revisit (back button, refresh after paying)
// goes to the cart instead of re-opening the gateway.
// GET /pay?u=
func (h *Handler) handlePayBridge(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionID(r.Context())
	if sid == "" {
		h.writeError(w, model.NewUnauthorizedError("session cookie required"))
		return
	}
	target := strings.TrimSpace(r.URL.Query().Get("u"))
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		h.writeError(w, model.NewValidationError("u", "an absolute http(s) URL is required"))
		return
	}

	flagKey := "pay:" + target
	if _, seen, _ := h.sessions.Get(r.Context(), sid, flagKey); seen {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	if err := h.sessions.Set(r.Context(), sid, flagKey, "1"); err != nil {
		h.logger.Warn("pay flag not persisted", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := payTemplate.Execute(w, struct{ URL string }{URL: target}); err != nil {
		h.logger.Error("pay bridge render failed", slog.String("error", err.Error()))
	}
}
