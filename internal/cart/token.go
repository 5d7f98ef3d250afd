package cart

import (
	"context"
	"sync"

	"storefront/internal/session"
)

const tokenKey = "cart_token"

// TokenManager tracks the WooCommerce Cart-Token for a session. The backend
// may rotate the token on any response; the rotated value must be persisted
// before the next request or the backend will mint a fresh, empty cart.
type TokenManager struct {
	mu     sync.Mutex
	sess   session.Store
	sid    string
	token  string
	loaded bool
}

// NewTokenManager creates a TokenManager bound to a session.
func NewTokenManager(sess session.Store, sid string) *TokenManager {
	return &TokenManager{sess: sess, sid: sid}
}

// Token returns the current cart token, loading the persisted value on
// first use. Empty means no cart exists upstream yet.
func (m *TokenManager) Token(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		m.loaded = true
		if val, ok, err := m.sess.Get(ctx, m.sid, tokenKey); err == nil && ok {
			m.token = val
		}
	}
	return m.token
}

// SetToken stores a rotated token. Empty tokens are ignored so a response
// without the header never erases a live token.
func (m *TokenManager) SetToken(ctx context.Context, token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	if m.token == token {
		return
	}
	m.token = token
	_ = m.sess.Set(ctx, m.sid, tokenKey, token)
}

// Clear drops the token, in memory and persisted. The next request will
// start a fresh upstream cart.
func (m *TokenManager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	m.token = ""
	_ = m.sess.Delete(ctx, m.sid, tokenKey)
}
