package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/model"
)

func newTestContent(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGetPageBySlug(t *testing.T) {
	client := newTestContent(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/pages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("slug"); got != "about-us" {
			t.Errorf("slug = %q", got)
		}
		json.NewEncoder(w).Encode([]Page{{ID: 12, Slug: "about-us", Title: Rendered{Rendered: "About Us"}}})
	}))

	page, err := client.GetPageBySlug(context.Background(), "about-us")
	if err != nil {
		t.Fatalf("GetPageBySlug: %v", err)
	}
	if page.ID != 12 || page.Title.Rendered != "About Us" {
		t.Errorf("page = %+v", page)
	}
}

func TestGetPageBySlugMissing(t *testing.T) {
	client := newTestContent(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Page{})
	}))

	_, err := client.GetPageBySlug(context.Background(), "missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestListPostsQueryAndPagination(t *testing.T) {
	client := newTestContent(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("search") != "coffee" || q.Get("categories") != "3" || q.Get("page") != "2" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("X-WP-Total", "11")
		w.Header().Set("X-WP-TotalPages", "2")
		json.NewEncoder(w).Encode([]Post{{ID: 1, Slug: "brewing-guide"}})
	}))

	list, err := client.ListPosts(context.Background(), PostQuery{Search: "coffee", Category: 3, Page: 2, PerPage: 10})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if list.Total != 11 || list.TotalPages != 2 || len(list.Posts) != 1 {
		t.Errorf("list = %+v", list)
	}
}
