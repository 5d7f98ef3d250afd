package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

// sessionCookie names the cookie that scopes cart and sign-in state to one
// visitor.
const sessionCookie = "sf_session"

type sessionKey struct{}

// newSessionID mints a random session id.
func newSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Session ensures every request carries a session id: existing cookies are
// reused, new visitors get a fresh id set on the response. The id lands in
// the request context for handlers and for the request log.
func Session(ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
				sid = cookie.Value
			} else {
				sid = newSessionID()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the request's session id, empty if the middleware did
// not run.
func SessionID(ctx context.Context) string {
	if v := ctx.Value(sessionKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// abbreviate shortens a session id for logs; full ids stay out of them.
func abbreviate(sid string) string {
	if len(sid) <= 8 {
		return sid
	}
	return sid[:8]
}
