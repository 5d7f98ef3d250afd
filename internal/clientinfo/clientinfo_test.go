package clientinfo

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    Info
		wantErr bool
	}{
		{"app and version", `app="mobile", version="1.4.2"`, Info{App: "mobile", Version: "1.4.2"}, false},
		{"app only", `app="web"`, Info{App: "web"}, false},
		{"missing app", `version="1.0.0"`, Info{}, true},
		{"empty", "", Info{}, true},
		{"garbage", `=!!`, Info{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHeader(%q) err = nil, want error", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeader(%q): %v", tt.header, err)
			}
			if got.App != tt.want.App || got.Version != tt.want.Version {
				t.Errorf("ParseHeader(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

func TestTooOld(t *testing.T) {
	tests := []struct {
		version string
		minimum string
		want    bool
	}{
		{"1.4.2", "1.5.0", true},
		{"1.5.0", "1.5.0", false},
		{"2.0.0", "1.5.0", false},
		{"", "1.5.0", false},
		{"1.4.2", "", false},
		{"not-a-version", "1.5.0", false},
	}
	for _, tt := range tests {
		if got := TooOld(tt.version, tt.minimum); got != tt.want {
			t.Errorf("TooOld(%q, %q) = %v, want %v", tt.version, tt.minimum, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	var seen *Info
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware("1.5.0", slog.Default())(inner)

	t.Run("no header passes through", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if seen != nil {
			t.Errorf("info = %+v, want nil", seen)
		}
	})

	t.Run("current client passes with info", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set(Header, `app="mobile", version="1.6.0"`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if seen == nil || seen.App != "mobile" {
			t.Errorf("info = %+v", seen)
		}
	})

	t.Run("old client gets upgrade required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set(Header, `app="mobile", version="1.0.0"`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUpgradeRequired {
			t.Errorf("status = %d, want 426", rec.Code)
		}
	})

	t.Run("malformed header ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set(Header, `=!!`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want malformed header to be ignored", rec.Code)
		}
	})
}
