package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paystream/internal/domain/audit"
	"paystream/internal/domain/ledger"
	"paystream/internal/domain/statement"
	"paystream/internal/platform/address"
	"paystream/internal/platform/config"
	"paystream/internal/platform/db"
	"paystream/internal/platform/jobs"
	"paystream/internal/platform/metrics"
	"paystream/internal/transport/http/api"
	audithandler "paystream/internal/transport/http/handlers/audit"
	ledgerhandler "paystream/internal/transport/http/handlers/ledger"
	"paystream/internal/transport/http/middleware"
	"paystream/internal/transport/http/ws"
)

const shutdownTimeout = 15 * time.Second

// Deps are the collaborators the HTTP router is built from.
type Deps struct {
	Ledger      *ledger.Service
	Statements  *statement.Service
	Audit       *audit.Service
	Idempotency middleware.IdempotencyBackend
	Hub         *ws.Hub
	Ping        func(ctx context.Context) error
}

func Run(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.RunMigrations {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	defer pool.Close()

	deployer, err := address.Parse(cfg.LedgerDeployer)
	if err != nil {
		return fmt.Errorf("LEDGER_DEPLOYER: %w", err)
	}
	var vault address.Address
	if cfg.LedgerTaxVault != "" {
		if vault, err = address.Parse(cfg.LedgerTaxVault); err != nil {
			return fmt.Errorf("LEDGER_TAX_VAULT: %w", err)
		}
	}

	hub := ws.NewHub(cfg.JWTSecret, cfg.CORSAllowedOrigins)
	go hub.Run(ctx)

	clock := clockwork.NewRealClock()
	svc, err := ledger.NewService(ctx, ledger.ServiceConfig{
		Store:         ledger.NewStore(pool),
		Clock:         clock,
		Deployer:      deployer,
		Tax:           ledger.TaxConfig{Vault: vault, BasisPoints: uint16(cfg.LedgerTaxBps)},
		DepositPolicy: ledger.DepositPolicy(cfg.LedgerDepositPolicy),
		Decimals:      int32(cfg.LedgerUnitDecimals),
		Publisher:     hub,
	})
	if err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, svc, cfg); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	}

	jobs.New(pool, clock).Start(ctx,
		jobs.Schedule{Type: jobs.JobSimulatedYield, Interval: cfg.YieldInterval, Run: jobs.SimulatedYield(svc)},
		jobs.Schedule{Type: jobs.JobLedgerSnapshot, Interval: cfg.SnapshotLogInterval, Run: jobs.LedgerSnapshot(svc)},
	)

	router := NewRouter(cfg, Deps{
		Ledger:      svc,
		Statements:  statement.NewService(svc, clock.Now),
		Audit:       audit.New(pool),
		Idempotency: middleware.NewIdempotencyStore(pool),
		Hub:         hub,
		Ping:        pool.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("paystream server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func NewRouter(cfg config.Config, deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware)
	}
	router.Use(chimw.Recoverer)
	if cfg.SentryDSN != "" {
		router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Hub != nil {
			r.Get("/events/ws", deps.Hub.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
			r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
			r.Use(middleware.Idempotency(deps.Idempotency))

			ledgerhandler.NewHandler(deps.Ledger, deps.Statements, auditRecorder(deps.Audit)).RegisterRoutes(r)
			if deps.Audit != nil {
				audithandler.NewHandler(deps.Audit, deps.Ledger).RegisterRoutes(r)
			}
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			api.Fail(w, http.StatusNotFound, "not_found", "route not found", middleware.GetRequestID(r.Context()))
			return
		}
		http.NotFound(w, r)
	})

	return router
}

// auditRecorder keeps a nil *audit.Service from becoming a non-nil interface.
func auditRecorder(svc *audit.Service) ledgerhandler.AuditRecorder {
	if svc == nil {
		return nil
	}
	return svc
}
