// Package wordpress reads site content (pages and blog posts) from the
// WordPress REST API. Content is public; no authentication is needed.
package wordpress

import (
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

const contentAPIPath = "/wp-json/wp/v2"

// Rendered is WordPress's {"rendered": "..."} wrapper.
type Rendered struct {
	Rendered string `json:"rendered"`
}

// Page is a WordPress page.
type Page struct {
	ID       int      `json:"id"`
	Slug     string   `json:"slug"`
	Title    Rendered `json:"title"`
	Content  Rendered `json:"content"`
	Modified string   `json:"modified"`
}

// Post is a WordPress blog post.
type Post struct {
	ID            int      `json:"id"`
	Slug          string   `json:"slug"`
	Title         Rendered `json:"title"`
	Content       Rendered `json:"content"`
	Excerpt       Rendered `json:"excerpt"`
	Date          string   `json:"date"`
	FeaturedMedia int      `json:"featured_media"`
	Categories    []int    `json:"categories"`
	Tags          []int    `json:"tags"`
}

// PostQuery filters GET /posts.
type PostQuery struct {
	Search   string
	Category int
	Tag      int
	Page     int
	PerPage  int
}

// PostList is a page of posts with pagination totals.
type PostList struct {
	Posts      []Post
	Total      int
	TotalPages int
}

// Client reads from the WordPress REST API.
type Client struct {
	httpClient *http.Client
	siteURL    string
}

// NewClient creates a content client. httpClient may be nil to use the
// Chrome-fingerprint transport.
func NewClient(siteURL string, httpClient *http.Client) (*Client, error) {
	if siteURL == "" {
		return nil, fmt.Errorf("site URL is required")
	}
	if httpClient == nil {
		httpClient = transport.NewClient(15 * time.Second)
	}
	return &Client{
		httpClient: httpClient,
		siteURL:    strings.TrimSuffix(siteURL, "/"),
	}, nil
}

// GetPageBySlug fetches a single page by its URL slug.
func (c *Client) GetPageBySlug(ctx context.Context, slug string) (*Page, error) {
	var pages []Page
	query := url.Values{"slug": {slug}, "per_page": {"1"}}
	if _, err := c.get(ctx, "/pages", query, &pages); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, model.NewNotFoundError("page")
	}
	return &pages[0], nil
}

// GetPostBySlug fetches a single post by its URL slug.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	var posts []Post
	query := url.Values{"slug": {slug}, "per_page": {"1"}}
	if _, err := c.get(ctx, "/posts", query, &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, model.NewNotFoundError("post")
	}
	return &posts[0], nil
}

// ListPosts fetches a page of posts.
func (c *Client) ListPosts(ctx context.Context, q PostQuery) (*PostList, error) {
	query := url.Values{}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Category > 0 {
		query.Set("categories", strconv.Itoa(q.Category))
	}
	if q.Tag > 0 {
		query.Set("tags", strconv.Itoa(q.Tag))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}

	list := &PostList{}
	header, err := c.get(ctx, "/posts", query, &list.Posts)
	if err != nil {
		return nil, err
	}
	list.Total, _ = strconv.Atoi(header.Get("X-WP-Total"))
	list.TotalPages, _ = strconv.Atoi(header.Get("X-WP-TotalPages"))
	return list, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) (http.Header, error) {
	endpoint := c.siteURL + contentAPIPath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("WordPress", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, model.NewNotFoundError("content")
	}
	if resp.StatusCode >= 400 {
		return nil, model.NewUpstreamError("WordPress",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return resp.Header, nil
}
