package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionAssignsNewVisitor(t *testing.T) {
	var seen string
	handler := Session(time.Hour, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/cart", nil))

	if seen == "" {
		t.Fatal("no session id in context")
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookie || cookies[0].Value != seen {
		t.Errorf("cookies = %+v, want one %s cookie matching the context id", cookies, sessionCookie)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie not HttpOnly")
	}
}

func TestSessionReusesCookie(t *testing.T) {
	var seen string
	handler := Session(time.Hour, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "existing-id"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "existing-id" {
		t.Errorf("session id = %q, want existing-id", seen)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("cookie re-set for returning visitor")
	}
}

func TestSessionIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := SessionID(req.Context()); got != "" {
		t.Errorf("SessionID = %q, want empty", got)
	}
}
