package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/bondia/internal/cache"
	"github.com/pribylovaa/bondia/internal/config"
	bhttp "github.com/pribylovaa/bondia/internal/http"
	"github.com/pribylovaa/bondia/internal/metrics"
	"github.com/pribylovaa/bondia/internal/service"
	"github.com/pribylovaa/bondia/internal/storage/minio"
	"github.com/pribylovaa/bondia/internal/storage/mongo"
	"github.com/pribylovaa/bondia/internal/storage/postgres"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting bondia-service", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	b, err := connect(rootCtx, cfg, log)
	if err != nil {
		log.Error("storage_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer b.close()

	m := metrics.New()
	b.deps.Metrics = m

	svc := service.New(cfg, b.deps)
	log.Info("service_initialized")

	startRefreshJanitor(rootCtx, svc, log, 30*time.Minute)

	apiHandler := bhttp.NewRouter(svc, bhttp.Options{
		Logger:         log,
		Timeout:        cfg.Timeouts.Service,
		Metrics:        m,
		MaxUploadBytes: cfg.Images.MaxRequestBytes(),
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if err := b.ping(r.Context()); err != nil {
			log.Warn("healthz_ping_failed", slog.String("err", err.Error()))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", m.Handler())

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

type pinger interface {
	Ping(ctx context.Context) error
}

// backends — открытые подключения к хранилищам.
type backends struct {
	deps    service.Deps
	pingers []pinger
	closers []func()
}

// ping проверяет все хранилища с общим коротким таймаутом.
func (b *backends) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for _, p := range b.pingers {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}

	return nil
}

// close закрывает подключения в обратном порядке.
func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// connect поднимает все хранилища; при ошибке закрывает уже открытые.
// Пустой redis.url — работа без кэша refresh-токенов.
func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	docs, err := mongo.New(connCtx, cfg)
	if err != nil {
		return nil, err
	}
	b.pingers = append(b.pingers, docs)
	b.closers = append(b.closers, func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		if err := docs.Close(cctx); err != nil {
			log.Warn("mongo_close_failed", slog.String("err", err.Error()))
		}
	})
	log.Info("mongo_connected")

	objects, err := minio.New(connCtx, cfg.S3)
	if err != nil {
		b.close()
		return nil, err
	}
	b.pingers = append(b.pingers, objects)
	log.Info("minio_connected", slog.String("bucket", cfg.S3.Bucket))

	accounts, err := postgres.New(connCtx, cfg.Postgres.URL)
	if err != nil {
		b.close()
		return nil, err
	}
	b.pingers = append(b.pingers, accounts)
	b.closers = append(b.closers, accounts.Close)
	log.Info("postgres_connected")

	b.deps = service.Deps{
		Documents: docs,
		Objects:   objects,
		Events:    docs,
		Groups:    docs,
		Messages:  docs,
		Accounts:  accounts,
	}

	if cfg.Redis.URL == "" {
		log.Info("redis_disabled")
		return b, nil
	}

	rc, err := cache.NewRedisCache(connCtx, cfg.Redis.URL, cfg.Redis.Prefix)
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, func() {
		if err := rc.Close(); err != nil {
			log.Warn("redis_close_failed", slog.String("err", err.Error()))
		}
	})
	b.deps.Cache = rc
	log.Info("redis_connected")

	return b, nil
}

// startRefreshJanitor периодически удаляет просроченные refresh-токены.
func startRefreshJanitor(ctx context.Context, svc *service.Service, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := svc.CleanupExpiredTokens(ctx); err != nil {
					log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
