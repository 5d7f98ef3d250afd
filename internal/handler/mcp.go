// MCP transport for agent clients, using the official MCP Go SDK. Tools
// operate on the same session-scoped cart as the JSON API; the session
// cookie travels with the /mcp HTTP requests.
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/model"
)

// GetCartInput is the input schema for the get_cart tool.
type GetCartInput struct{}

// SyncCartInput is the input schema for the sync_cart tool.
type SyncCartInput struct{}

// ApplyCouponInput is the input schema for the apply_coupon tool.
type ApplyCouponInput struct {
	Code string `json:"code" jsonschema:"coupon code to apply; empty removes the current coupon"`
}

// CheckoutInput is the input schema for the checkout tool.
type CheckoutInput struct {
	Address       model.Address `json:"address" jsonschema:"guest name, email, and shipping address"`
	PaymentMethod string        `json:"payment_method,omitempty" jsonschema:"payment method id, defaults to cod"`
	Note          string        `json:"note,omitempty" jsonschema:"customer note for the order"`
}

// NewMCPServer creates an MCP server with the cart tools registered.
// The tools mirror the JSON API for the same session.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Headless storefront cart operations. " +
				"Use these tools to inspect the cart, apply coupons, and place orders.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the current cart: lines, quantities, coupon, and totals.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_cart",
		Description: "Force a reconciliation with the store backend and return the refreshed cart.",
	}, h.mcpSyncCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_coupon",
		Description: "Apply a coupon code to the cart. An empty code removes the current coupon.",
	}, h.mcpApplyCoupon)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "checkout",
		Description: "Place the order for the current cart. Requires a complete guest address.",
	}, h.mcpCheckout)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetCartInput,
) (*mcp.CallToolResult, cartView, error) {
	rt, _, err := h.mcpRuntime(ctx)
	if err != nil {
		return nil, cartView{}, err
	}
	return nil, h.cartView(rt), nil
}

func (h *Handler) mcpSyncCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SyncCartInput,
) (*mcp.CallToolResult, cartView, error) {
	rt, _, err := h.mcpRuntime(ctx)
	if err != nil {
		return nil, cartView{}, err
	}
	_ = rt.Engine.Sync(ctx)
	return nil, h.cartView(rt), nil
}

func (h *Handler) mcpApplyCoupon(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ApplyCouponInput,
) (*mcp.CallToolResult, cartView, error) {
	rt, _, err := h.mcpRuntime(ctx)
	if err != nil {
		return nil, cartView{}, err
	}
	rt.Cart.SetCoupon(ctx, input.Code)
	_ = rt.Engine.Sync(ctx)
	return nil, h.cartView(rt), nil
}

func (h *Handler) mcpCheckout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckoutInput,
) (*mcp.CallToolResult, *checkout.Result, error) {
	rt, sid, err := h.mcpRuntime(ctx)
	if err != nil {
		return nil, nil, err
	}

	orderReq := &checkout.Request{
		Address:       input.Address,
		PaymentMethod: input.PaymentMethod,
		Note:          input.Note,
	}
	if h.auth != nil {
		orderReq.CustomerID = h.auth.CustomerID(ctx, sid)
	}

	result, err := rt.Checkout.PlaceOrder(ctx, orderReq)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, result, nil
}

// mcpRuntime resolves the session runtime from the tool call context. The
// streamable handler derives tool contexts from the HTTP request, so the
// session middleware's id is available here.
func (h *Handler) mcpRuntime(ctx context.Context) (*Runtime, string, error) {
	sid := middleware.SessionID(ctx)
	if sid == "" {
		return nil, "", fmt.Errorf("session cookie required")
	}
	return h.runtimes.Get(ctx, sid), sid, nil
}

// mcpError converts API errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	if apiErr, ok := err.(*model.APIError); ok {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
