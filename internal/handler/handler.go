// Package handler provides the HTTP surface of the storefront API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/woocommerce"
	"storefront/internal/wordpress"
)

// CartBackend is the slice of the Store API client the handlers call
// directly, outside the sync engine.
type CartBackend interface {
	UpdateCustomer(ctx context.Context, tokens woocommerce.TokenStore, billing, shipping *woocommerce.WooAddress) (*woocommerce.WooCartResponse, error)
	SelectShippingRate(ctx context.Context, tokens woocommerce.TokenStore, packageID int, rateID string) (*woocommerce.WooCartResponse, error)
}

// CatalogAPI serves product browsing from the REST catalog.
type CatalogAPI interface {
	ListProducts(ctx context.Context, q woocommerce.ProductQuery) (*woocommerce.ProductList, error)
	GetProductBySlug(ctx context.Context, slug string) (*woocommerce.Product, error)
	ListCategories(ctx context.Context) ([]woocommerce.ProductCategory, error)
}

// ContentAPI serves CMS pages and posts.
type ContentAPI interface {
	GetPageBySlug(ctx context.Context, slug string) (*wordpress.Page, error)
	GetPostBySlug(ctx context.Context, slug string) (*wordpress.Post, error)
	ListPosts(ctx context.Context, q wordpress.PostQuery) (*wordpress.PostList, error)
}

// AuthService handles Google sign-in and the session's customer binding.
type AuthService interface {
	SignIn(ctx context.Context, sid, idToken string) (*auth.Identity, error)
	SignOut(ctx context.Context, sid string) error
	CustomerID(ctx context.Context, sid string) int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	runtimes *Registry
	backend  CartBackend
	sessions session.Store
	catalog  CatalogAPI  // optional
	content  ContentAPI  // optional
	auth     AuthService // optional
	logger   *slog.Logger
}

// Config wires a Handler. Catalog, Content, and Auth may be nil; their
// routes are simply not registered.
type Config struct {
	Runtimes *Registry
	Backend  CartBackend
	Sessions session.Store
	Catalog  CatalogAPI
	Content  ContentAPI
	Auth     AuthService
	Logger   *slog.Logger
}

// New creates a Handler.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runtimes: cfg.Runtimes,
		backend:  cfg.Backend,
		sessions: cfg.Sessions,
		catalog:  cfg.Catalog,
		content:  cfg.Content,
		auth:     cfg.Auth,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("POST /api/cart/items", h.handleAddItem)
	mux.HandleFunc("PATCH /api/cart/items/{key}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{key}", h.handleRemoveItem)
	mux.HandleFunc("POST /api/cart/sync", h.handleSyncCart)
	mux.HandleFunc("POST /api/cart/apply-coupon", h.handleApplyCoupon)
	mux.HandleFunc("POST /api/cart/remove-coupon", h.handleRemoveCoupon)
	mux.HandleFunc("POST /api/cart/update-customer", h.handleUpdateCustomer)
	mux.HandleFunc("POST /api/cart/select-shipping-rate", h.handleSelectShippingRate)

	mux.HandleFunc("POST /api/checkout", h.handleCheckout)
	mux.HandleFunc("GET /api/order", h.handleOrderLookup)
	mux.HandleFunc("GET /api/regions", h.handleRegions)
	mux.HandleFunc("GET /pay", h.handlePayBridge)

	if h.auth != nil {
		mux.HandleFunc("POST /api/auth/google", h.handleGoogleSignIn)
		mux.HandleFunc("POST /api/auth/signout", h.handleSignOut)
	}
	if h.catalog != nil {
		mux.HandleFunc("GET /api/content/products", h.handleListProducts)
		mux.HandleFunc("GET /api/content/products/{slug}", h.handleGetProduct)
		mux.HandleFunc("GET /api/content/categories", h.handleListCategories)
	}
	if h.content != nil {
		mux.HandleFunc("GET /api/content/pages/{slug}", h.handleGetPage)
		mux.HandleFunc("GET /api/content/posts", h.handleListPosts)
		mux.HandleFunc("GET /api/content/posts/{slug}", h.handleGetPost)
	}

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// runtime resolves the caller's session runtime from the cookie-scoped id.
func (h *Handler) runtime(r *http.Request) (*Runtime, string, error) {
	sid := middleware.SessionID(r.Context())
	if sid == "" {
		return nil, "", model.NewUnauthorizedError("session cookie required")
	}
	return h.runtimes.Get(r.Context(), sid), sid, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRegions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Country string         `json:"country"`
		Regions []model.Region `json:"regions"`
	}{Country: "PH", Regions: model.Regions})
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError
// if present. Uses errors.As() to unwrap error chains.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB.
const MaxRequestBodySize = 1 << 20

// decodeJSON reads JSON from request body into v.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
