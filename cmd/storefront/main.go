// Storefront - headless WooCommerce storefront API.
// Serves the session-scoped cart, checkout, and content surface over JSON
// and MCP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/clientinfo"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/session"
	"storefront/internal/shipping"
	cartsync "storefront/internal/sync"
	"storefront/internal/transport"
	"storefront/internal/woocommerce"
	"storefront/internal/wordpress"
)

// sweepInterval is how often idle session runtimes are evicted.
const sweepInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("site_url", cfg.Store.SiteURL),
		slog.String("environment", cfg.Environment),
		slog.Bool("redis", cfg.RedisAddr != ""),
		slog.Bool("google_signin", cfg.Store.GoogleClientID != ""),
	)

	// Session store: Redis when configured, in-memory otherwise.
	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	// All upstream clients share the Chrome-fingerprint transport so the
	// store's CDN treats server-side calls like browser traffic.
	httpClient := transport.NewClient(30 * time.Second)

	storeClient, err := woocommerce.New(woocommerce.Config{
		StoreURL:   cfg.Store.SiteURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		return fmt.Errorf("creating store client: %w", err)
	}
	restClient, err := woocommerce.NewREST(cfg.Store.SiteURL, cfg.Store.RESTKey, cfg.Store.RESTSecret, httpClient)
	if err != nil {
		return fmt.Errorf("creating REST client: %w", err)
	}
	contentClient, err := wordpress.NewClient(cfg.Store.SiteURL, httpClient)
	if err != nil {
		return fmt.Errorf("creating content client: %w", err)
	}

	registry := handler.NewRegistry(func(sid string) *handler.Runtime {
		store := cart.New(sessions, sid)
		tokens := cart.NewTokenManager(sessions, sid)
		selector := shipping.NewSelector(
			storeClient,
			cfg.Store.FreeShippingThresholdMinor(),
			cfg.Store.FreeShippingMethodID,
			logger,
		)
		engine := cartsync.NewEngine(cartsync.Config{
			Store:    store,
			Tokens:   tokens,
			API:      storeClient,
			Rates:    selector,
			Debounce: cfg.DebounceWindow,
			Logger:   logger,
		})
		orch := checkout.NewOrchestrator(store, tokens, storeClient, restClient, engine, selector, logger)
		return &handler.Runtime{Cart: store, Tokens: tokens, Engine: engine, Checkout: orch}
	}, logger)
	defer registry.Close()

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if n := registry.Sweep(cfg.SessionTTL); n > 0 {
				logger.Debug("idle runtimes evicted", slog.Int("count", n))
			}
		}
	}()

	handlerCfg := handler.Config{
		Runtimes: registry,
		Backend:  storeClient,
		Sessions: sessions,
		Catalog:  restClient,
		Content:  contentClient,
		Logger:   logger,
	}
	if cfg.Store.GoogleClientID != "" {
		handlerCfg.Auth = auth.NewAuthenticator(cfg.Store.GoogleClientID, restClient, sessions, nil, logger)
	}
	h := handler.New(handlerCfg)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery must be outermost to catch panics from the inner layers.
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.Session(cfg.SessionTTL, cfg.Environment == "production"),
		clientinfo.Middleware(cfg.MinClientVersion, logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
