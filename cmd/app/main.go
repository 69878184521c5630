// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"analysis-gateway/internal/config"
	"analysis-gateway/internal/domain/ports/repository"
	"analysis-gateway/internal/infra/adapters/assistant"
	"analysis-gateway/internal/infra/adapters/identity"
	pg "analysis-gateway/internal/infra/db/postgres"
	"analysis-gateway/internal/infra/logging"
	"analysis-gateway/internal/infra/metrics"
	red "analysis-gateway/internal/infra/redis"
	"analysis-gateway/internal/infra/sched"
	"analysis-gateway/internal/infra/web"
	"analysis-gateway/internal/infra/worker"
	"analysis-gateway/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	txManager := pg.NewTxManager(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	jobRepo := pg.NewAnalysisJobRepo(pool)
	var planRepo repository.PlanRepository = pg.NewPostgresPlanRepo(pool)

	// ---- Redis (optional) ----
	var contextStore repository.ContextStore
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, redisClient, cfg.Redis.TTL, logger)
		contextStore = red.NewContextStore(redisClient, "")
		logger.Info().Str("addr", cfg.Redis.URL).Msg("redis enabled: shared contexts and plan cache")
	} else {
		logger.Info().Msg("redis disabled: contexts are kept per process")
	}

	// ---- Adapters ----
	openai, err := assistant.NewOpenAIClient(cfg.AI.OpenAIKey, cfg.AI.BaseURL, cfg.AI.Assistants, cfg.AI.HTTPTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("assistant client")
	}
	jobClient := assistant.NewLimitedClient(openai, cfg.AI.ConcurrentLimit)

	identityProvider, err := identity.NewHTTPProvider(cfg.Auth.IdentityURL, cfg.Auth.RandomParam, cfg.AI.HTTPTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("identity provider")
	}
	tokens := web.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// ---- Background workers ----
	workerPool := worker.NewPool(cfg.Workers.RecordWorkers, logger)
	workerPool.Start(ctx)
	recorder := usecase.NewAsyncJobRecorder(workerPool, jobRepo, logger)

	// ---- Use cases ----
	quotaUC := usecase.NewQuotaUseCase(userRepo, cfg.Quota.ResetPeriod, logger)
	contexts := usecase.NewContextCache(jobClient, contextStore, logger)
	orchestrator := usecase.NewOrchestrator(jobClient, contexts, recorder, usecase.OrchestratorConfig{
		PollInterval: cfg.AI.PollInterval,
		JobTimeout:   cfg.AI.JobTimeout,
		MaxPolls:     cfg.AI.MaxPolls,
	}, logger)
	analysisUC := usecase.NewAnalysisUseCase(orchestrator, quotaUC, cfg.AI.AnalysisTypes(), logger)
	userUC := usecase.NewUserUseCase(userRepo, planRepo, txManager, cfg.Quota.ResetPeriod, logger)
	authUC := usecase.NewAuthUseCase(identityProvider, tokens, cfg.Runtime.Dev, logger)

	resetWorker := sched.NewQuotaResetWorker(cfg.Quota.ResetCheckInterval, quotaUC, logger)
	go func() { _ = resetWorker.Run(ctx) }()

	// ---- HTTP ----
	srv := web.NewServer(web.Deps{
		Analysis:           analysisUC,
		Quota:              quotaUC,
		Users:              userUC,
		Auth:               authUC,
		Tokens:             tokens,
		SubscriptionAPIKey: cfg.Auth.SubscriptionAPIKey,
		CORSOrigin:         cfg.Server.CORSOrigin,
		RequestTimeout:     cfg.Server.RequestTimeout,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Strs("analysis_types", cfg.AI.AnalysisTypes()).
			Str("version", version).
			Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Wait for shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	// flush queued job records before the pool's context goes away
	workerPool.Stop()
	cancel()
	logger.Info().Msg("bye")
}
