package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/analytics"
	"github.com/Christian-Regnante/SmartQ/internal/config"
	"github.com/Christian-Regnante/SmartQ/internal/display"
	"github.com/Christian-Regnante/SmartQ/internal/httpapi"
	"github.com/Christian-Regnante/SmartQ/internal/notify"
	"github.com/Christian-Regnante/SmartQ/internal/queue"
	"github.com/Christian-Regnante/SmartQ/internal/store/postgres"
	"github.com/Christian-Regnante/SmartQ/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("smartq")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	admission := queue.NewAdmission(st, queue.PolicyByName(cfg.PhonePolicy))
	cycle := queue.NewCycle(st)
	aggregator := analytics.New(st)
	sessions := httpapi.NewSessions(st, cfg.SessionTTL)

	hub := display.NewHub()
	broadcaster := display.NewBroadcaster(hub, st, cfg.DisplayInterval, cfg.DisplayBatchSize)
	worker := notify.New(st, notify.Config{
		BatchSize: cfg.NotifyBatchSize,
		Provider:  notify.NewProvider(cfg.SMSProvider),
	})

	handler := httpapi.NewHandler(httpapi.Options{
		Tickets:   st,
		Admission: admission,
		Cycle:     cycle,
		Admin:     st,
		Sessions:  sessions,
		Analytics: aggregator,
		Display:   hub.Handler(),
	})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:  cfg.RateLimitPerMinute,
		IPBurst:      cfg.RateLimitBurst,
		OrgPerMinute: cfg.OrgRateLimitPerMinute,
		OrgBurst:     cfg.OrgRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/", httpapi.AuthMiddleware(sessions, handler.Routes()))

	chain := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "smartq")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broadcaster.Run(ctx)
	go notify.Start(ctx, cfg.NotifyInterval, worker)

	go func() {
		log.Printf("smartq listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
