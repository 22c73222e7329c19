// Command providerauth-server runs the provider authentication engine behind
// a small JSON HTTP API.
//
// Endpoints:
//
//	POST /api/v1/auth/login               {"identifier","password","rememberMe","deviceInfo"}
//	POST /api/v1/auth/refresh             {"refreshToken"}
//	POST /api/v1/auth/logout              {"refreshToken"}
//	POST /api/v1/auth/logout-all          bearer access token
//	GET  /api/v1/auth/me                  bearer access token
//	GET  /api/v1/auth/registration-quota  remaining registrations for the caller IP
//	GET  /healthz
//	GET  /metrics                         Prometheus text format
//
// Without -redis-addr an embedded miniredis holds refresh tokens and
// registration counters, so the demo needs no external services:
//
//	go run ./cmd/providerauth-server -seed-email dr.house@example.com -seed-password correct-horse-battery
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/metrics/export/prometheus"
	"github.com/MrEthical07/providerAuth/middleware"
	"github.com/MrEthical07/providerAuth/retention"
	"github.com/MrEthical07/providerAuth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type options struct {
	addr           string
	configPath     string
	backend        string
	dsn            string
	tokenStore     string
	redisAddr      string
	trustedProxies string
	seedEmail      string
	seedPassword   string
	retention      time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", ":8080", "listen address")
	flag.StringVar(&opts.configPath, "config", "", "TOML config file; defaults are used when empty")
	flag.StringVar(&opts.backend, "store", "memory", "credential and ledger backend: memory, sqlite or postgres")
	flag.StringVar(&opts.dsn, "dsn", "file:providerauth.db", "sqlite file or postgres URL")
	flag.StringVar(&opts.tokenStore, "token-store", "redis", "refresh-token store: redis or db")
	flag.StringVar(&opts.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address; miniredis is started when empty")
	flag.StringVar(&opts.trustedProxies, "trusted-proxies", "", "comma-separated CIDRs allowed to set X-Forwarded-For")
	flag.StringVar(&opts.seedEmail, "seed-email", "", "create an active, verified provider with this email on start")
	flag.StringVar(&opts.seedPassword, "seed-password", "", "password for -seed-email")
	flag.DurationVar(&opts.retention, "retention-interval", time.Hour, "interval between retention passes")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("providerauth-server: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg := providerAuth.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := providerAuth.LoadConfigFile(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if len(cfg.Tokens.PrivateKey) == 0 {
		key := os.Getenv("PROVIDERAUTH_SIGNING_KEY")
		if key == "" {
			return errors.New("no signing key: set tokens.signingKey or PROVIDERAUTH_SIGNING_KEY")
		}
		cfg.Tokens.PrivateKey = []byte(key)
	}
	for _, w := range cfg.Lint().BySeverity(providerAuth.LintWarn) {
		logger.Warn("providerauth-server: config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	trusted, err := middleware.ParseTrusted(strings.Split(opts.trustedProxies, ",")...)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	rdb, closeRedis, err := openRedis(opts.redisAddr, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	be, err := openBackend(ctx, opts.backend, opts.dsn)
	if err != nil {
		return err
	}
	defer be.close()

	builder := providerAuth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithRedis(rdb).
		WithCredentialStore(be.credentials).
		WithAttemptLedger(be.ledger).
		WithAuditSink(providerAuth.NewSlogSink(logger)).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true)
	var tokenPruner store.TokenPruner
	switch opts.tokenStore {
	case "redis":
	case "db":
		builder = builder.WithTokenStore(be.tokens)
		tokenPruner = be.tokens
	default:
		return fmt.Errorf("unknown token store %q", opts.tokenStore)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	if opts.seedEmail != "" {
		if err := seedPrincipal(ctx, be, cfg, opts.seedEmail, opts.seedPassword); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("providerauth-server: seeded provider", "email", opts.seedEmail)
	}

	cleaner := retention.New(tokenPruner, be.ledger, retention.Config{Interval: opts.retention}, logger)
	go func() {
		if err := cleaner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("providerauth-server: retention stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         opts.addr,
		Handler:      logRequests(logger, newRouter(engine, middleware.ClientIP{Trusted: trusted}, prometheus.NewPrometheusExporter(engine).Handler())),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("providerauth-server: listening", "addr", opts.addr, "store", opts.backend, "token_store", opts.tokenStore)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		return client, func() { _ = client.Close() }, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("miniredis: %w", err)
	}
	logger.Info("providerauth-server: using embedded miniredis", "addr", mr.Addr())
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("providerauth-server: request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
