// Package clientinfo parses the optional Storefront-Client header that the
// web and mobile frontends send to identify themselves. The header is an
// RFC 8941 Dictionary:
//
//	Storefront-Client: app="mobile", version="1.4.2"
//
// Requests without the header pass through untouched; browsers hitting the
// API directly never send it. When a minimum version is configured, old
// clients are told to upgrade instead of hitting APIs they predate.
package clientinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dunglas/httpsfv"
	"golang.org/x/mod/semver"
)

// Header is the client identification header name.
const Header = "Storefront-Client"

// Info describes the calling frontend.
type Info struct {
	App     string
	Version string
}

type contextKey struct{}

// ParseHeader extracts client info from a Storefront-Client header value.
func ParseHeader(header string) (*Info, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, errors.New("empty Storefront-Client header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return nil, fmt.Errorf("invalid Storefront-Client header: %w", err)
	}

	info := &Info{}
	if member, ok := dict.Get("app"); ok {
		if item, ok := member.(httpsfv.Item); ok {
			if s, ok := item.Value.(string); ok {
				info.App = s
			}
		}
	}
	if member, ok := dict.Get("version"); ok {
		if item, ok := member.(httpsfv.Item); ok {
			if s, ok := item.Value.(string); ok {
				info.Version = s
			}
		}
	}
	if info.App == "" {
		return nil, errors.New("app key not found in Storefront-Client header")
	}
	return info, nil
}

// TooOld reports whether version is below minimum. Versions are compared
// as semver; a missing or unparsable version is never too old, since the
// header is best-effort.
func TooOld(version, minimum string) bool {
	if version == "" || minimum == "" {
		return false
	}
	v, m := canonical(version), canonical(minimum)
	if !semver.IsValid(v) || !semver.IsValid(m) {
		return false
	}
	return semver.Compare(v, m) < 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Middleware parses the header and stores the Info on the request context.
// Clients below minVersion receive 426 Upgrade Required. Malformed headers
// are logged and ignored; identification must never break shopping.
func Middleware(minVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(Header)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			info, err := ParseHeader(header)
			if err != nil {
				logger.Warn("unparsable client header",
					slog.String("header", header),
					slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			if TooOld(info.Version, minVersion) {
				writeUpgradeRequired(w, minVersion)
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext retrieves the client info, nil when the header was absent.
func FromContext(ctx context.Context) *Info {
	v := ctx.Value(contextKey{})
	if v == nil {
		return nil
	}
	return v.(*Info)
}

func writeUpgradeRequired(w http.ResponseWriter, minimum string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUpgradeRequired)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = "CLIENT_TOO_OLD"
	resp.Error.Message = "Please update the app to version " + minimum + " or later."
	json.NewEncoder(w).Encode(resp)
}
