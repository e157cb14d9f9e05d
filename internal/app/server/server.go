package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reviewcall/internal/domain/call"
	"reviewcall/internal/domain/session"
	"reviewcall/internal/platform/backend"
	"reviewcall/internal/platform/config"
	"reviewcall/internal/platform/db"
	"reviewcall/internal/platform/jobs"
	"reviewcall/internal/platform/metrics"
	sessionhandler "reviewcall/internal/transport/http/handlers/session"
	"reviewcall/internal/transport/http/middleware"
)

func Run() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "err", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Environment == "development" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	roster, err := config.LoadRoster(cfg.RosterFile)
	if err != nil {
		slog.Error("invalid roster", "err", err)
		os.Exit(1)
	}
	if cfg.AssistantName != "" {
		roster.Assistant.Name = cfg.AssistantName
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			slog.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New(registry)
	}

	queue := jobs.New(func(taskType, key string, err error) {
		slog.Warn("background task failed", "task", taskType, "key", key, "err", err)
	})
	defer queue.Drain()

	store := session.NewStore(pool)
	manager := call.NewManager(call.ManagerParams{
		Backend:       backend.NewClient(cfg),
		Store:         store,
		Queue:         queue,
		Metrics:       collector,
		AssistantName: roster.Assistant.Name,
		Greeting:      roster.Assistant.Greeting,
		Competencies:  roster.Competencies,
		CacheTTL:      cfg.CacheTTL,
		Silence: call.SilenceThresholds{
			Nudge: cfg.SilenceNudgeAfter,
			Offer: cfg.SilenceOfferAfter,
			End:   cfg.SilenceEndAfter,
		},
		EndCallDelay: cfg.EndCallDelay,
	})
	defer manager.Shutdown()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		sessionhandler.NewHandler(manager, store).RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("review facilitator listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("graceful shutdown failed", "err", err)
	}
}
