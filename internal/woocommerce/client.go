package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/transport"
)

// =============================================================================
// CART-TOKEN SESSION STRATEGY
// =============================================================================
//
// The Store API binds cart sessions to the Cart-Token header. The backend
// may rotate the token on ANY response, and the rotated value must be sent
// on the next request or the backend mints a fresh, empty cart and the
// visitor's items silently vanish.
//
// Every request here therefore:
//
//   1. Reads the current token from the session-scoped TokenStore
//   2. Sends it as Cart-Token
//   3. Persists any rotated token from the response header BEFORE
//      returning, so a crash between response and parse cannot lose it
//
// Mutations do not need the Nonce header: server-to-server traffic
// authenticates the session purely via Cart-Token, and the nonce dance is
// a browser-storefront concern.
// =============================================================================

// storeAPIPath is the base path for Store API endpoints.
const storeAPIPath = "/wp-json/wc/store/v1"

// userAgent identifies this client to upstream servers.
// Required: WooCommerce CDN/WAF rate-limits requests without User-Agent.
const userAgent = "Storefront/1.0"

// TokenStore holds the Cart-Token for one visitor session.
type TokenStore interface {
	Token(ctx context.Context) string
	SetToken(ctx context.Context, token string)
}

// Config holds Store API client configuration.
type Config struct {
	StoreURL string
	// HTTPClient overrides the default Chrome-fingerprint client. Tests use
	// this to point at an httptest server.
	HTTPClient *http.Client
}

// Client talks to the WooCommerce Store API. It is stateless and shared
// across sessions; per-session state travels in the TokenStore argument.
// Requires WooCommerce Blocks (included in WC 6.9+) for the endpoints.
type Client struct {
	httpClient *http.Client
	storeURL   string
}

// New creates a Store API client.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// Chrome TLS fingerprint avoids JA3-based rate limiting.
		// See internal/transport for rationale.
		httpClient = transport.NewClient(30 * time.Second)
	}
	return &Client{
		httpClient: httpClient,
		storeURL:   strings.TrimSuffix(cfg.StoreURL, "/"),
	}, nil
}

// GetCart fetches the current cart state.
func (c *Client) GetCart(ctx context.Context, tokens TokenStore) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodGet, "/cart", nil)
}

// AddItem adds an item to the cart. id is the variation id for variations,
// the product id otherwise.
func (c *Client) AddItem(ctx context.Context, tokens TokenStore, id, quantity int) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/add-item",
		&WooCartAddRequest{ID: id, Quantity: quantity})
}

// UpdateItem changes the quantity of an existing cart item.
func (c *Client) UpdateItem(ctx context.Context, tokens TokenStore, key string, quantity int) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/update-item",
		&WooCartUpdateRequest{Key: key, Quantity: quantity})
}

// RemoveItem removes a cart item by its cart item key.
func (c *Client) RemoveItem(ctx context.Context, tokens TokenStore, key string) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/remove-item",
		map[string]string{"key": key})
}

// ApplyCoupon applies a coupon code to the cart.
func (c *Client) ApplyCoupon(ctx context.Context, tokens TokenStore, code string) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/apply-coupon",
		map[string]string{"code": code})
}

// RemoveCoupon removes an applied coupon code.
func (c *Client) RemoveCoupon(ctx context.Context, tokens TokenStore, code string) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/remove-coupon",
		map[string]string{"code": code})
}

// UpdateCustomer pushes billing/shipping addresses onto the cart, which
// makes the backend recalculate shipping rates for the destination.
func (c *Client) UpdateCustomer(ctx context.Context, tokens TokenStore, billing, shipping *WooAddress) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/update-customer",
		&WooCustomerRequest{BillingAddress: billing, ShippingAddress: shipping})
}

// SelectShippingRate selects a shipping rate for a package.
func (c *Client) SelectShippingRate(ctx context.Context, tokens TokenStore, packageID int, rateID string) (*WooCartResponse, error) {
	return c.doCartRequest(ctx, tokens, http.MethodPost, "/cart/select-shipping-rate",
		&WooSelectRateRequest{PackageID: packageID, RateID: rateID})
}

// doCartRequest executes a Store API request and decodes the cart response.
// Rotated cart tokens are persisted before the response is parsed.
func (c *Client) doCartRequest(ctx context.Context, tokens TokenStore, method, path string, body interface{}) (*WooCartResponse, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.storeURL+storeAPIPath+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, tokens.Token(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	// Persist a rotated token first. Losing it orphans the upstream cart.
	if rotated := resp.Header.Get("Cart-Token"); rotated != "" {
		tokens.SetToken(ctx, rotated)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, respBody)
	}

	var cart WooCartResponse
	if err := json.Unmarshal(respBody, &cart); err != nil {
		return nil, fmt.Errorf("parsing cart response: %w", err)
	}
	return &cart, nil
}

// setHeaders sets Store API request headers. Unlike REST API v3, the Store
// API does not use Basic Auth; the Cart-Token is the whole session.
func (c *Client) setHeaders(req *http.Request, cartToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cartToken != "" {
		req.Header.Set("Cart-Token", cartToken)
	}
}

// parseErrorResponse converts a WooCommerce error body to an APIError with
// a user-presentable message.
func parseErrorResponse(statusCode int, body []byte) error {
	var wcErr WooErrorResponse
	json.Unmarshal(body, &wcErr) // best effort

	switch statusCode {
	case 404:
		return model.NewNotFoundError("cart")
	case 401, 403:
		return model.NewUnauthorizedError("WooCommerce authentication failed")
	case 400:
		return model.NewValidationError("request", FriendlyMessage(wcErr.Code, wcErr.Message))
	case 429:
		return model.NewRateLimitError("WooCommerce")
	default:
		return model.NewUpstreamError("WooCommerce",
			fmt.Errorf("status %d: %s - %s", statusCode, wcErr.Code, wcErr.Message))
	}
}
