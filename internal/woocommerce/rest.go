package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/transport"
)

// restAPIPath is the base path for REST API v3 endpoints.
const restAPIPath = "/wp-json/wc/v3"

// RESTClient talks to the WooCommerce REST API v3 with consumer key/secret
// Basic Auth. Orders, customers, and the product catalog live here; cart
// state does not (that is the Store API's job).
type RESTClient struct {
	httpClient *http.Client
	storeURL   string
	key        string
	secret     string
}

// NewREST creates a REST API v3 client.
func NewREST(storeURL, key, secret string, httpClient *http.Client) (*RESTClient, error) {
	if storeURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if key == "" || secret == "" {
		return nil, fmt.Errorf("REST API credentials are required")
	}
	if httpClient == nil {
		httpClient = transport.NewClient(30 * time.Second)
	}
	return &RESTClient{
		httpClient: httpClient,
		storeURL:   strings.TrimSuffix(storeURL, "/"),
		key:        key,
		secret:     secret,
	}, nil
}

// === Order Types ===

// OrderRequest is the POST /orders payload.
type OrderRequest struct {
	PaymentMethod      string          `json:"payment_method"`
	PaymentMethodTitle string          `json:"payment_method_title,omitempty"`
	SetPaid            bool            `json:"set_paid"`
	CustomerID         int             `json:"customer_id,omitempty"`
	CustomerNote       string          `json:"customer_note,omitempty"`
	Billing            *WooAddress     `json:"billing,omitempty"`
	Shipping           *WooAddress     `json:"shipping,omitempty"`
	LineItems          []OrderLineItem `json:"line_items"`
	ShippingLines      []ShippingLine  `json:"shipping_lines,omitempty"`
	CouponLines        []CouponLine    `json:"coupon_lines,omitempty"`
	MetaData           []OrderMeta     `json:"meta_data,omitempty"`
}

// OrderLineItem is one product line on an order request.
type OrderLineItem struct {
	ProductID   int `json:"product_id"`
	VariationID int `json:"variation_id,omitempty"`
	Quantity    int `json:"quantity"`
}

// ShippingLine records the chosen shipping method on an order.
// Total is a major-unit decimal string ("89.00"), unlike the Store API's
// minor-unit strings.
type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// CouponLine records an applied coupon on an order.
type CouponLine struct {
	Code string `json:"code"`
}

// OrderMeta is an order meta_data entry.
type OrderMeta struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Order is the REST v3 order representation. All amounts are major-unit
// decimal strings.
type Order struct {
	ID                 int              `json:"id"`
	OrderKey           string           `json:"order_key"`
	Number             string           `json:"number"`
	Status             string           `json:"status"`
	Currency           string           `json:"currency"`
	CurrencySymbol     string           `json:"currency_symbol"`
	Total              string           `json:"total"`
	ShippingTotal      string           `json:"shipping_total"`
	DiscountTotal      string           `json:"discount_total"`
	PaymentMethod      string           `json:"payment_method"`
	PaymentMethodTitle string           `json:"payment_method_title"`
	PaymentURL         string           `json:"payment_url"`
	DateCreated        string           `json:"date_created"`
	CustomerID         int              `json:"customer_id"`
	Billing            WooAddress       `json:"billing"`
	Shipping           WooAddress       `json:"shipping"`
	LineItems          []OrderItemView  `json:"line_items"`
	ShippingLines      []ShippingLine   `json:"shipping_lines"`
}

// OrderItemView is one product line on an order response.
type OrderItemView struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Total     string  `json:"total"`
	Price     float64 `json:"price"`
}

// === Customer Types ===

// Customer is the REST v3 customer representation.
type Customer struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// === Catalog Types ===

// Product is the REST v3 product representation, trimmed to storefront
// needs. Prices are major-unit decimal strings.
type Product struct {
	ID               int               `json:"id"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Type             string            `json:"type"` // simple, variable
	Price            string            `json:"price"`
	RegularPrice     string            `json:"regular_price"`
	SalePrice        string            `json:"sale_price"`
	OnSale           bool              `json:"on_sale"`
	StockStatus      string            `json:"stock_status"`
	ShortDescription string            `json:"short_description"`
	Description      string            `json:"description"`
	Images           []WooImage        `json:"images"`
	Categories       []ProductCategory `json:"categories"`
	Variations       []int             `json:"variations"`
}

// ProductCategory is a category reference on a product, and the list shape
// of GET /products/categories.
type ProductCategory struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Parent int    `json:"parent,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// ProductQuery filters GET /products.
type ProductQuery struct {
	Search   string
	Category string // category id
	Slug     string
	OrderBy  string
	Order    string
	Page     int
	PerPage  int
}

// ProductList is a page of products with pagination totals from the
// X-WP-Total headers.
type ProductList struct {
	Products   []Product
	Total      int
	TotalPages int
}

// === Orders ===

// CreateOrder creates an order from the finalized cart state.
func (c *RESTClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches an order by id.
func (c *RESTClient) GetOrder(ctx context.Context, id int) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+strconv.Itoa(id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// === Customers ===

// FindOrCreateCustomer returns the customer with the given email, creating
// one when none exists. Concurrent sign-ins can race the create; the
// email-exists error resolves by re-fetching.
func (c *RESTClient) FindOrCreateCustomer(ctx context.Context, email, firstName, lastName string) (*Customer, error) {
	if found, err := c.findCustomerByEmail(ctx, email); err != nil {
		return nil, err
	} else if found != nil {
		return found, nil
	}

	var created Customer
	err := c.do(ctx, http.MethodPost, "/customers", nil, map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
	}, &created)
	if err == nil {
		return &created, nil
	}

	// Lost the race: someone created the customer between our lookup and
	// create. Fetch wins.
	if found, ferr := c.findCustomerByEmail(ctx, email); ferr == nil && found != nil {
		return found, nil
	}
	return nil, err
}

func (c *RESTClient) findCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	var customers []Customer
	query := url.Values{"email": {email}, "per_page": {"1"}}
	if err := c.do(ctx, http.MethodGet, "/customers", query, nil, &customers); err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

// === Catalog ===

// ListProducts fetches a page of products.
func (c *RESTClient) ListProducts(ctx context.Context, q ProductQuery) (*ProductList, error) {
	query := url.Values{}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.Slug != "" {
		query.Set("slug", q.Slug)
	}
	if q.OrderBy != "" {
		query.Set("orderby", q.OrderBy)
	}
	if q.Order != "" {
		query.Set("order", q.Order)
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	query.Set("status", "publish")

	list := &ProductList{}
	header, err := c.doWithHeader(ctx, http.MethodGet, "/products", query, nil, &list.Products)
	if err != nil {
		return nil, err
	}
	list.Total, _ = strconv.Atoi(header.Get("X-WP-Total"))
	list.TotalPages, _ = strconv.Atoi(header.Get("X-WP-TotalPages"))
	return list, nil
}

// GetProductBySlug fetches a single product by its URL slug.
func (c *RESTClient) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	list, err := c.ListProducts(ctx, ProductQuery{Slug: slug, PerPage: 1})
	if err != nil {
		return nil, err
	}
	if len(list.Products) == 0 {
		return nil, model.NewNotFoundError("product")
	}
	return &list.Products[0], nil
}

// ListCategories fetches product categories.
func (c *RESTClient) ListCategories(ctx context.Context) ([]ProductCategory, error) {
	var categories []ProductCategory
	query := url.Values{"per_page": {"100"}, "hide_empty": {"true"}}
	if err := c.do(ctx, http.MethodGet, "/products/categories", query, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// === Plumbing ===

func (c *RESTClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	_, err := c.doWithHeader(ctx, method, path, query, body, out)
	return err
}

func (c *RESTClient) doWithHeader(ctx context.Context, method, path string, query url.Values, body, out interface{}) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	endpoint := c.storeURL + restAPIPath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
	}
	return resp.Header, nil
}
