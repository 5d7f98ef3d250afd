// Package woocommerce implements the HTTP clients for the WooCommerce
// backend: the Store API (cart and checkout, Cart-Token sessions) and the
// REST API v3 (orders, customers, catalog, Basic Auth).
package woocommerce

// === Store API Response Types ===

// WooCartResponse represents a Store API cart response. Every mutation
// endpoint returns the full cart state, so one type covers them all.
type WooCartResponse struct {
	Items                 []WooCartItem    `json:"items"`
	Totals                WooTotals        `json:"totals"`
	ShippingRates         []WooShippingPkg `json:"shipping_rates,omitempty"`
	Coupons               []WooCoupon      `json:"coupons,omitempty"`
	NeedsShipping         bool             `json:"needs_shipping"`
	HasCalculatedShipping bool             `json:"has_calculated_shipping"`
	BillingAddress        WooAddress       `json:"billing_address"`
	ShippingAddress       WooAddress       `json:"shipping_address"`
	Errors                []WooCartError   `json:"errors,omitempty"`
}

// WooCartError represents an error surfaced inside cart state.
type WooCartError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WooCartItem represents one line of the cart response.
type WooCartItem struct {
	Key            string            `json:"key"` // cart item key, not numeric
	ID             int               `json:"id"`  // variation id for variations, else product id
	Name           string            `json:"name"`
	Quantity       int               `json:"quantity"`
	QuantityLimits WooQuantityLimits `json:"quantity_limits"`
	Prices         WooCartItemPrices `json:"prices"`
	Totals         WooCartItemTotals `json:"totals"`
	Images         []WooImage        `json:"images,omitempty"`
	Variation      []WooVariant      `json:"variation,omitempty"`
}

// WooQuantityLimits are the per-line quantity constraints the backend
// enforces on add and update.
type WooQuantityLimits struct {
	Minimum    int  `json:"minimum"`
	Maximum    int  `json:"maximum"`
	MultipleOf int  `json:"multiple_of"`
	Editable   bool `json:"editable"`
}

// WooCartItemPrices contains price info for a cart item.
// All amounts are minor-unit integer strings.
type WooCartItemPrices struct {
	Price        string `json:"price"`
	RegularPrice string `json:"regular_price"`
	SalePrice    string `json:"sale_price"`
}

// WooCartItemTotals contains line totals for a cart item.
type WooCartItemTotals struct {
	LineSubtotal string `json:"line_subtotal"`
	LineTotal    string `json:"line_total"`
}

// WooTotals contains cart-level totals. All amounts are minor-unit integer
// strings; CurrencyMinorUnit is the exponent for conversion.
type WooTotals struct {
	CurrencyCode      string `json:"currency_code"`
	CurrencySymbol    string `json:"currency_symbol"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
	TotalItems        string `json:"total_items"`
	TotalDiscount     string `json:"total_discount"`
	TotalShipping     string `json:"total_shipping"`
	TotalTax          string `json:"total_tax"`
	TotalPrice        string `json:"total_price"`
}

// WooAddress represents a Store API address.
type WooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WooImage represents a product image.
type WooImage struct {
	ID  int    `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// WooVariant represents a chosen variation attribute on a cart line.
type WooVariant struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// WooShippingPkg represents a shipping package with its available rates.
type WooShippingPkg struct {
	PackageID     int               `json:"package_id"`
	Name          string            `json:"name"`
	ShippingRates []WooShippingRate `json:"shipping_rates"`
}

// WooShippingRate represents a single shipping option.
type WooShippingRate struct {
	RateID     string `json:"rate_id"`
	Name       string `json:"name"`
	Price      string `json:"price"` // minor units as string
	MethodID   string `json:"method_id"`
	InstanceID int    `json:"instance_id"`
	Selected   bool   `json:"selected"`
}

// WooCoupon represents an applied discount code.
type WooCoupon struct {
	Code   string          `json:"code"`
	Totals WooCouponTotals `json:"totals"`
}

// WooCouponTotals contains the calculated discount for a coupon.
type WooCouponTotals struct {
	TotalDiscount string `json:"total_discount"`
}

// WooErrorResponse represents a Store API error body.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// === Store API Request Types ===

// WooCartAddRequest adds an item to the cart. ID is the variation id for
// variations, the product id otherwise.
type WooCartAddRequest struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

// WooCartUpdateRequest changes the quantity of an existing cart item.
type WooCartUpdateRequest struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

// WooCustomerRequest updates the cart's billing/shipping addresses, which
// triggers shipping rate recalculation.
type WooCustomerRequest struct {
	BillingAddress  *WooAddress `json:"billing_address,omitempty"`
	ShippingAddress *WooAddress `json:"shipping_address,omitempty"`
}

// WooSelectRateRequest selects a shipping rate for a package.
type WooSelectRateRequest struct {
	PackageID int    `json:"package_id"`
	RateID    string `json:"rate_id"`
}
