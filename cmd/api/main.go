package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/crownbid-backend/api/routes"
	"github.com/ArowuTest/crownbid-backend/internal/cache"
	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/config"
	"github.com/ArowuTest/crownbid-backend/internal/handlers"
	"github.com/ArowuTest/crownbid-backend/internal/metrics"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"github.com/ArowuTest/crownbid-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/crownbid-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/crownbid-backend/internal/scheduler"
	"github.com/ArowuTest/crownbid-backend/internal/services"
	"github.com/ArowuTest/crownbid-backend/pkg/jwt"
	mongodb "github.com/ArowuTest/crownbid-backend/pkg/mongodb"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// stores groups the repositories selected by Store.Driver
type stores struct {
	candidates repositories.CandidateRepository
	status     repositories.CrownStatusRepository
	events     repositories.SettlementEventRepository
	queue      repositories.QueueEntryRepository
	close      func(context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	crownCache := openCache(ctx, cfg)

	var gateway payments.Gateway
	if cfg.Stripe.MockAPI {
		log.Println("Using mock payment gateway")
		gateway = payments.NewMockGateway()
	} else {
		gateway = payments.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.BaseURL, cfg.Stripe.Timeout)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	opts, err := services.SettlementOptionsFromConfig(cfg.Settlement)
	if err != nil {
		log.Fatalf("Invalid settlement configuration: %v", err)
	}
	clk := clock.Real{}

	settlementService := services.NewSettlementService(
		st.candidates, st.status, st.events, gateway, crownCache, clk, settlementMetrics, opts,
	)
	crownStatusService := services.NewCrownStatusService(
		st.status, st.candidates, st.events, crownCache, cfg.Settlement.EventsPageSize,
	)
	paymentMethodService := services.NewPaymentMethodService(st.candidates, gateway)
	queueService := services.NewQueueService(st.candidates, st.queue, clk)

	tokens := jwt.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second)

	router := routes.SetupRouter(cfg, routes.Handlers{
		Settlement: handlers.NewSettlementHandler(settlementService),
		Crown:      handlers.NewCrownHandler(crownStatusService),
		Payment:    handlers.NewPaymentHandler(paymentMethodService),
		Queue:      handlers.NewQueueHandler(queueService),
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(settlementService, cfg.Scheduler.At, opts.Location, clk)
		if err != nil {
			log.Fatalf("Invalid scheduler configuration: %v", err)
		}
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
	log.Println("Server exiting")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Store.Driver == "memory" {
		log.Println("Using in-memory store")
		return &stores{
			candidates: memory.NewCandidateRepository(),
			status:     memory.NewCrownStatusRepository(),
			events:     memory.NewSettlementEventRepository(),
			queue:      memory.NewQueueEntryRepository(),
			close:      func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &stores{
		candidates: mongorepo.NewCandidateRepository(db),
		status:     mongorepo.NewCrownStatusRepository(db),
		events:     mongorepo.NewSettlementEventRepository(db),
		queue:      mongorepo.NewQueueEntryRepository(db),
		close:      client.Disconnect,
	}, nil
}

// openCache falls back to no caching when Redis is unset or unreachable
func openCache(ctx context.Context, cfg *config.Config) cache.CrownCache {
	if cfg.Redis.Addr == "" {
		return cache.Noop{}
	}
	rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		slog.Warn("Redis unavailable, public crown is not cached", "error", err)
		return cache.Noop{}
	}
	return cache.NewRedisCrownCache(rdb, cfg.Redis.CrownTTL)
}

func setLogLevel(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
