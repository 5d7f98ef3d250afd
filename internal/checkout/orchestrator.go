package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/woocommerce"
)

// CartAPI is the slice of the Store API client the orchestrator needs.
type CartAPI interface {
	UpdateCustomer(ctx context.Context, tokens woocommerce.TokenStore, billing, shipping *woocommerce.WooAddress) (*woocommerce.WooCartResponse, error)
}

// OrderAPI is the slice of the REST client the orchestrator needs.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req *woocommerce.OrderRequest) (*woocommerce.Order, error)
	GetOrder(ctx context.Context, id int) (*woocommerce.Order, error)
}

// Flusher forces a full cart reconciliation before the order is placed.
type Flusher interface {
	Sync(ctx context.Context) error
}

// RateReconciler fixes up the shipping selection on the final snapshot.
type RateReconciler interface {
	Reconcile(ctx context.Context, tokens woocommerce.TokenStore, snap *woocommerce.WooCartResponse) (*woocommerce.WooCartResponse, error)
}

// Orchestrator drives checkout for one session: push the address, settle
// shipping, create the order over REST, then clear the session cart.
type Orchestrator struct {
	store  *cart.Store
	tokens *cart.TokenManager
	api    CartAPI
	orders OrderAPI
	engine Flusher
	rates  RateReconciler // optional
	logger *slog.Logger
}

// NewOrchestrator wires an Orchestrator for one session.
func NewOrchestrator(store *cart.Store, tokens *cart.TokenManager, api CartAPI, orders OrderAPI, engine Flusher, rates RateReconciler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:  store,
		tokens: tokens,
		api:    api,
		orders: orders,
		engine: engine,
		rates:  rates,
		logger: logger,
	}
}

// Request is a checkout submission.
type Request struct {
	Address            model.Address `json:"address"`
	PaymentMethod      string        `json:"payment_method"`
	PaymentMethodTitle string        `json:"payment_method_title"`
	Note               string        `json:"note"`
	CustomerID         int           `json:"-"` // from the session, never the body
}

// Result is a successful checkout.
type Result struct {
	OrderID     int    `json:"order_id"`
	OrderKey    string `json:"order_key"`
	RedirectURL string `json:"redirect_url"`
}

// PlaceOrder validates the submission, converges the backend cart, and
// creates the order. The session cart is cleared only after the order
// exists, so a failed attempt keeps everything editable.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req *Request) (*Result, error) {
	if len(o.store.Lines()) == 0 {
		return nil, model.NewValidationError("cart", "Your cart is empty.")
	}
	// Signed-in customers have their identity on file; only the delivery
	// destination is required of them.
	if req.CustomerID == 0 {
		if err := ValidateAddress(&req.Address); err != nil {
			return nil, err
		}
	} else if err := ValidateShippingAddress(&req.Address); err != nil {
		return nil, err
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cod"
	}

	// The ledger is the source of truth; make the backend match it before
	// anything is priced.
	if err := o.engine.Sync(ctx); err != nil {
		return nil, err
	}

	wooAddr := WireAddress(&req.Address)
	snap, err := o.api.UpdateCustomer(ctx, o.tokens, wooAddr, wooAddr)
	if err != nil {
		return nil, err
	}

	// The new destination may have changed the rates; settle the selection
	// before reading it off the snapshot.
	if o.rates != nil {
		if reselected, err := o.rates.Reconcile(ctx, o.tokens, snap); err == nil && reselected != nil {
			snap = reselected
		}
	}

	orderReq := o.buildOrderRequest(req, wooAddr, snap)
	order, err := o.orders.CreateOrder(ctx, orderReq)
	if err != nil {
		return nil, err
	}

	o.logger.Info("order created",
		"order_id", order.ID, "total", order.Total, "payment_method", req.PaymentMethod)

	// The order owns the items now.
	o.store.Clear(ctx)
	o.tokens.Clear(ctx)

	redirect := order.PaymentURL
	if redirect == "" {
		redirect = fmt.Sprintf("/order/%s?order=%d", order.OrderKey, order.ID)
	}
	return &Result{
		OrderID:     order.ID,
		OrderKey:    order.OrderKey,
		RedirectURL: redirect,
	}, nil
}

func (o *Orchestrator) buildOrderRequest(req *Request, addr *woocommerce.WooAddress, snap *woocommerce.WooCartResponse) *woocommerce.OrderRequest {
	lines := o.store.Lines()
	items := make([]woocommerce.OrderLineItem, len(lines))
	for i, l := range lines {
		items[i] = woocommerce.OrderLineItem{
			ProductID:   l.ProductID,
			VariationID: l.VariationID,
			Quantity:    l.Quantity,
		}
	}

	orderReq := &woocommerce.OrderRequest{
		PaymentMethod:      req.PaymentMethod,
		PaymentMethodTitle: req.PaymentMethodTitle,
		SetPaid:            false,
		CustomerID:         req.CustomerID,
		CustomerNote:       req.Note,
		Billing:            addr,
		Shipping:           addr,
		LineItems:          items,
		MetaData: []woocommerce.OrderMeta{
			{Key: "_order_channel", Value: "headless-storefront"},
		},
	}

	// REST order totals are major units; the Store API snapshot is minor.
	// The exact rate and method instance are recorded as meta so fulfilment
	// sees which quote the visitor accepted, not just the method.
	if rate := selectedRate(snap); rate != nil {
		orderReq.ShippingLines = []woocommerce.ShippingLine{{
			MethodID:    rate.MethodID,
			MethodTitle: rate.Name,
			Total:       model.MinorToMajorString(rate.Price, snap.Totals.CurrencyMinorUnit),
		}}
		orderReq.MetaData = append(orderReq.MetaData,
			woocommerce.OrderMeta{Key: "_shipping_rate_id", Value: rate.RateID},
			woocommerce.OrderMeta{Key: "_shipping_instance_id", Value: strconv.Itoa(rate.InstanceID)},
		)
	}
	if code := o.store.Coupon(); code != "" {
		orderReq.CouponLines = []woocommerce.CouponLine{{Code: code}}
	}
	return orderReq
}

// selectedRate returns the selected rate of the first package, if any.
func selectedRate(snap *woocommerce.WooCartResponse) *woocommerce.WooShippingRate {
	if snap == nil || len(snap.ShippingRates) == 0 {
		return nil
	}
	rates := snap.ShippingRates[0].ShippingRates
	for i := range rates {
		if rates[i].Selected {
			return &rates[i]
		}
	}
	return nil
}

// WireAddress converts a validated form address to the wire format,
// normalizing free-text regions into codes for the primary market.
func WireAddress(addr *model.Address) *woocommerce.WooAddress {
	region := strings.TrimSpace(addr.Region)
	if model.IsPrimaryMarket(addr.Country) && !model.ValidRegion(region) {
		region = model.NormalizeRegion(region)
	}
	first, last := model.SplitName(addr.Name)
	return &woocommerce.WooAddress{
		FirstName: first,
		LastName:  last,
		Address1:  addr.Address1,
		Address2:  addr.Address2,
		City:      addr.City,
		State:     strings.ToUpper(region),
		Postcode:  addr.Postcode,
		Country:   strings.ToUpper(strings.TrimSpace(addr.Country)),
		Email:     addr.Email,
		Phone:     addr.Phone,
	}
}

// === Order lookup ===

// Receipt is the sanitized order view served to visitors. It deliberately
// omits addresses and contact details beyond the first name.
type Receipt struct {
	OrderID            int           `json:"order_id"`
	Number             string        `json:"number"`
	Status             string        `json:"status"`
	DateCreated        string        `json:"date_created"`
	Currency           string        `json:"currency"`
	CurrencySymbol     string        `json:"currency_symbol"`
	Total              string        `json:"total"`
	ShippingTotal      string        `json:"shipping_total"`
	DiscountTotal      string        `json:"discount_total"`
	PaymentMethodTitle string        `json:"payment_method_title"`
	FirstName          string        `json:"first_name"`
	Items              []ReceiptItem `json:"items"`
}

// ReceiptItem is one line of a receipt.
type ReceiptItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

// LookupOrder fetches an order and verifies the caller knows either its
// order key or the billing email. A failed check returns the same not-found
// error as a missing order, so the endpoint cannot be used to probe which
// order ids exist.
func (o *Orchestrator) LookupOrder(ctx context.Context, orderID int, key, email string) (*Receipt, error) {
	if key == "" && email == "" {
		return nil, model.NewValidationError("key", "Provide your order key or billing email.")
	}

	order, err := o.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	keyOK := key != "" && order.OrderKey == key
	emailOK := email != "" && strings.EqualFold(order.Billing.Email, email)
	if !keyOK && !emailOK {
		return nil, model.NewNotFoundError("order")
	}

	items := make([]ReceiptItem, len(order.LineItems))
	for i, it := range order.LineItems {
		items[i] = ReceiptItem{Name: it.Name, Quantity: it.Quantity, Total: it.Total}
	}
	return &Receipt{
		OrderID:            order.ID,
		Number:             order.Number,
		Status:             order.Status,
		DateCreated:        order.DateCreated,
		Currency:           order.Currency,
		CurrencySymbol:     order.CurrencySymbol,
		Total:              order.Total,
		ShippingTotal:      order.ShippingTotal,
		DiscountTotal:      order.DiscountTotal,
		PaymentMethodTitle: order.PaymentMethodTitle,
		FirstName:          order.Billing.FirstName,
		Items:              items,
	}, nil
}
