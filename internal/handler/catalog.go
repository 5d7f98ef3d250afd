package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/model"
	"storefront/internal/woocommerce"
	"storefront/internal/wordpress"
)

// Catalog and content routes proxy the Woo REST catalog and the WordPress
// content API. Responses pass through with pagination totals attached.

// GET /api/content/products
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := woocommerce.ProductQuery{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		OrderBy:  q.Get("orderby"),
		Order:    q.Get("order"),
		Page:     queryInt(q.Get("page")),
		PerPage:  queryInt(q.Get("per_page")),
	}

	list, err := h.catalog.ListProducts(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct {
		Products   []woocommerce.Product `json:"products"`
		Total      int                   `json:"total"`
		TotalPages int                   `json:"total_pages"`
	}{list.Products, list.Total, list.TotalPages})
}

// GET /api/content/products/{slug}
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		h.writeError(w, model.NewValidationError("slug", "product slug is required"))
		return
	}
	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

// GET /api/content/categories
func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct {
		Categories []woocommerce.ProductCategory `json:"categories"`
	}{categories})
}

// GET /api/content/pages/{slug}
func (h *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.content.GetPageBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// GET /api/content/posts/{slug}
func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.GetPostBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, post)
}

// GET /api/content/posts
func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := wordpress.PostQuery{
		Search:   q.Get("search"),
		Category: queryInt(q.Get("category")),
		Tag:      queryInt(q.Get("tag")),
		Page:     queryInt(q.Get("page")),
		PerPage:  queryInt(q.Get("per_page")),
	}

	list, err := h.content.ListPosts(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct {
		Posts      []wordpress.Post `json:"posts"`
		Total      int              `json:"total"`
		TotalPages int              `json:"total_pages"`
	}{list.Posts, list.Total, list.TotalPages})
}

// queryInt parses a query parameter, zero when absent or malformed.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
