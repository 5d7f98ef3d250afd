package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	cartsync "storefront/internal/sync"
)

// Runtime bundles the per-session objects behind the cart API: the ledger,
// the cart-token manager, the sync engine, and the checkout orchestrator.
// One Runtime exists per session id and lives until the session idles out.
type Runtime struct {
	Cart     *cart.Store
	Tokens   *cart.TokenManager
	Engine   *cartsync.Engine
	Checkout *checkout.Orchestrator
}

// Close stops the runtime's sync engine.
func (rt *Runtime) Close() {
	rt.Engine.Close()
}

type runtimeEntry struct {
	rt       *Runtime
	lastSeen time.Time
}

// Registry lazily builds and caches one Runtime per session id.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*runtimeEntry
	build   func(sid string) *Runtime
	logger  *slog.Logger
}

// NewRegistry creates a Registry that builds runtimes with the given
// factory.
func NewRegistry(build func(sid string) *Runtime, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*runtimeEntry),
		build:   build,
		logger:  logger,
	}
}

// Get returns the session's runtime, building and hydrating it on first
// use. Hydration failures leave the ledger empty rather than failing the
// request.
func (g *Registry) Get(ctx context.Context, sid string) *Runtime {
	g.mu.Lock()
	e, ok := g.entries[sid]
	if !ok {
		e = &runtimeEntry{rt: g.build(sid)}
		g.entries[sid] = e
	}
	e.lastSeen = time.Now()
	rt := e.rt
	g.mu.Unlock()

	if err := rt.Cart.Hydrate(ctx); err != nil {
		g.logger.Warn("cart hydrate failed", slog.String("error", err.Error()))
	}
	return rt
}

// Sweep closes and drops runtimes idle for longer than maxIdle, returning
// how many were evicted. The persisted ledger survives in the session
// store; a returning visitor gets a fresh runtime hydrated from it.
func (g *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var evicted []*Runtime

	g.mu.Lock()
	for sid, e := range g.entries {
		if e.lastSeen.Before(cutoff) {
			evicted = append(evicted, e.rt)
			delete(g.entries, sid)
		}
	}
	g.mu.Unlock()

	for _, rt := range evicted {
		rt.Close()
	}
	return len(evicted)
}

// Close stops every cached runtime.
func (g *Registry) Close() {
	g.mu.Lock()
	entries := g.entries
	g.entries = make(map[string]*runtimeEntry)
	g.mu.Unlock()

	for _, e := range entries {
		e.rt.Close()
	}
}
