package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"privacyguard-lab/internal/api"
	"privacyguard-lab/internal/api/handlers"
	apimiddleware "privacyguard-lab/internal/api/middleware"
	"privacyguard-lab/internal/config"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/grpc/riskanalysis"
	"privacyguard-lab/internal/infrastructure/cache"
	"privacyguard-lab/internal/infrastructure/database"
	"privacyguard-lab/internal/infrastructure/database/repository"
	"privacyguard-lab/internal/infrastructure/graph"
	"privacyguard-lab/internal/streaming"
	"privacyguard-lab/pkg/logger"
)

// infra holds the optional backing services; nil fields are disabled
type infra struct {
	db       *database.PostgresDB
	cache    *cache.RedisCache
	neo4j    *graph.Neo4jClient
	eventBus *streaming.EventBus
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.New(logger.Config{
			Level:      cfg.Logger.Level,
			Format:     cfg.Logger.Format,
			TimeFormat: cfg.Logger.TimeFormat,
		})
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting PrivacyGuard Lab")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inf := initInfrastructure(ctx, cfg, log)
	defer inf.close(log)

	// WebSocket hub for dashboards and mobile clients
	wsHub := streaming.NewWebSocketHub(log)
	go wsHub.Run(ctx)
	go wsHub.Consume(ctx, inf.eventBus)

	// Analyzer with whichever collaborators are available
	deps := services.AnalyzerDeps{}
	if inf.cache != nil {
		deps.Cache = inf.cache
	}
	if inf.db != nil && cfg.Analysis.PersistResults {
		deps.Store = repository.NewRepositories(inf.db.Pool()).Analyses
	}
	if inf.neo4j != nil {
		deps.Graph = graph.NewGraphRepository(inf.neo4j, log)
	}
	if cfg.Analysis.PublishEvents {
		deps.Events = streaming.NewEventBusPublisher(inf.eventBus)
	}

	analyzer := services.NewAppAnalyzer(services.AnalyzerConfig{
		BatchMax: cfg.Analysis.BatchMax,
		Workers:  cfg.Analysis.Workers,
		CacheTTL: cfg.Analysis.CacheTTL,
	}, deps, log)
	log.Info().
		Bool("cache", deps.Cache != nil).
		Bool("store", deps.Store != nil).
		Bool("graph", deps.Graph != nil).
		Bool("events", deps.Events != nil).
		Msg("app analyzer initialized")

	checks := inf.checks()

	h := handlers.NewHandlers(handlers.Dependencies{
		Analyzer: analyzer,
		Counters: inf.counters(),
		Checks:   checks,
		WSHub:    wsHub,
		EventBus: inf.eventBus,
		Version:  cfg.App.Version,
		Logger:   log,
	})

	var limiter apimiddleware.RateLimitStore
	if inf.cache != nil {
		limiter = inf.cache
	}
	router := api.NewRouter(*cfg, h, limiter, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gRPC listener")
	}

	grpcServer := grpc.NewServer()
	riskanalysis.NewServer(analyzer, log).Register(grpcServer)

	grpcChecks := make(map[string]riskanalysis.Check, len(checks))
	for name, check := range checks {
		grpcChecks[name] = riskanalysis.Check(check)
	}
	riskanalysis.RegisterHealthServer(ctx, grpcServer, grpcChecks, log)

	go func() {
		log.Info().Str("addr", grpcListener.Addr().String()).Msg("starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.GracefulStop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}

// initInfrastructure connects to every enabled backing service. A service
// that cannot be reached is logged and left disabled.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) *infra {
	inf := &infra{}

	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing without persistence")
		} else {
			inf.db = db
		}
	}

	if cfg.Redis.Enabled {
		c, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		} else {
			inf.cache = c
		}
	}

	if cfg.Neo4j.Enabled {
		client, err := graph.NewNeo4jClient(ctx, cfg.Neo4j, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Neo4j, sdk graph disabled")
		} else {
			inf.neo4j = client
		}
	}

	var natsPublisher *streaming.NATSPublisher
	if cfg.NATS.Enabled {
		p, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing with local events only")
		} else {
			natsPublisher = p
		}
	}
	inf.eventBus = streaming.NewEventBus(natsPublisher, log)
	log.Info().Bool("nats_enabled", natsPublisher != nil).Msg("event bus initialized")

	return inf
}

func (inf *infra) checks() map[string]handlers.HealthCheck {
	checks := make(map[string]handlers.HealthCheck)
	if inf.db != nil {
		checks["postgres"] = inf.db.Ping
	}
	if inf.cache != nil {
		checks["redis"] = inf.cache.Ping
	}
	if inf.neo4j != nil {
		checks["neo4j"] = inf.neo4j.Health
	}
	return checks
}

func (inf *infra) counters() handlers.TierCounter {
	if inf.cache == nil {
		return nil
	}
	return inf.cache
}

func (inf *infra) close(log *logger.Logger) {
	inf.eventBus.Close()
	if inf.neo4j != nil {
		if err := inf.neo4j.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to close Neo4j driver")
		}
	}
	if inf.cache != nil {
		inf.cache.Close()
	}
	if inf.db != nil {
		inf.db.Close()
	}
}
