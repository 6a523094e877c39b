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
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/dbinit"
	apphttp "storefront/internal/http"
	"storefront/internal/http/middleware"
	"storefront/internal/logging"
	"storefront/internal/notify"
	"storefront/internal/telegram"
	"storefront/internal/transfer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "env file: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil && cfg == nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	l := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(l)

	if err != nil {
		slog.Warn("config.missing", "path", *configPath, "err", err)
	}
	if cfg.DefaultSecret() {
		slog.Warn("config.default_secret", "msg", "hydration tickets are signed with the default secret; set security.ticket_secret or STOREFRONT_TICKET_SECRET")
	}
	auth.SetSecret(cfg.Security.TicketSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, ready, closeStore, err := openTransfer(ctx, cfg)
	if err != nil {
		slog.Error("transfer.open", "backend", cfg.Transfer.Backend, "err", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("transfer.ready", "backend", cfg.Transfer.Backend, "ttl", cfg.Transfer.TTL)

	mux, err := apphttp.NewMux(apphttp.Deps{
		Catalog:    catalog.NewClient(cfg.API.BaseURL, cfg.API.Timeout, nil),
		Transfer:   transfer.Instrument(store, cfg.Transfer.Backend),
		BaseURL:    cfg.BaseURL,
		AssetsBase: cfg.Assets.BaseURL,
		TicketTTL:  cfg.Security.TicketTTL,
		Alerts:     notify.NewThrottled(telegram.New(cfg.Alerts.TelegramToken, cfg.Alerts.ChatID), 5*time.Minute),
		Limiter:    middleware.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window),
		Ready:      ready,
	})
	if err != nil {
		slog.Error("http.mux", "err", err)
		os.Exit(1)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           apphttp.WithStandardMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("http.starting", "addr", cfg.HTTP.Address, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http.listen", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http.shutting_down")
	_ = srv.Shutdown(shutdownCtx)
	slog.Info("http.stopped")
}

// openTransfer builds the configured transfer backend. The returned probe
// backs /readyz.
func openTransfer(ctx context.Context, cfg *config.Config) (transfer.Store, func(context.Context) error, func(), error) {
	switch cfg.Transfer.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		ready := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return transfer.NewRedis(rdb, cfg.Transfer.Prefix, cfg.Transfer.TTL), ready, func() { _ = rdb.Close() }, nil

	case config.BackendPostgres:
		pgURL, err := cfg.Database.AppURL()
		if err != nil {
			return nil, nil, nil, err
		}
		initCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
		if err := dbinit.EnsureDatabaseAndMigrate(initCtx, pgURL, cfg.Database.Name, cfg.Database.User); err != nil {
			return nil, nil, nil, fmt.Errorf("db init: %w", err)
		}
		slog.Info("db.migrated", "database", cfg.Database.Name)

		pool, err := db.NewPool(initCtx, pgURL)
		if err != nil {
			return nil, nil, nil, err
		}
		store := transfer.NewPostgres(pool, cfg.Transfer.TTL)
		go purgeLoop(ctx, store, cfg.Transfer.TTL)
		return store, pool.Ping, pool.Close, nil

	default:
		mem := transfer.NewMemory(cfg.Transfer.TTL)
		go mem.RunJanitor(ctx, cfg.Transfer.TTL)
		return mem, nil, func() {}, nil
	}
}

func purgeLoop(ctx context.Context, store *transfer.Postgres, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.Purge(ctx)
			if err != nil {
				slog.Warn("transfer.purge", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("transfer.purge", "rows", n)
			}
		}
	}
}
