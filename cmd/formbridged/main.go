package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/export"
	"github.com/formbridge/formbridge/internal/llm"
	"github.com/formbridge/formbridge/internal/llm/openai"
	"github.com/formbridge/formbridge/internal/ocr"
	"github.com/formbridge/formbridge/internal/pipeline"
	"github.com/formbridge/formbridge/internal/repository"
	"github.com/formbridge/formbridge/internal/schemas"
	"github.com/formbridge/formbridge/internal/server"
	"github.com/formbridge/formbridge/internal/upload"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	store := blobstore.NewS3Store(awsCfg, cfg.AWS.FormsBucket, cfg.AWS.SchemasBucket, logger)

	redisCache := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB}, logger)
	defer func() { _ = redisCache.Close() }()
	deduper := upload.NewDeduper(redisCache, store, cfg.Redis.CacheTTL, logger)

	textract := ocr.NewTextractClient(awsCfg, logger)
	poller := ocr.NewPoller(textract, logger,
		ocr.WithInterval(cfg.Pipeline.PollInterval),
		ocr.WithMaxAttempts(cfg.Pipeline.PollMaxAttempts),
	)

	kind, err := llm.ParseStrategyKind(cfg.Pipeline.Strategy)
	if err != nil {
		logger.Error("invalid normalization strategy", "error", err)
		os.Exit(1)
	}
	var strategy llm.Strategy
	switch kind {
	case llm.StrategySchemaDocument:
		strategy = llm.SchemaDocumentStrategy{Store: store}
	default:
		strategy = llm.TypedRecordStrategy{}
	}

	invoker := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	normalizer := llm.NewNormalizer(invoker, strategy, logger,
		llm.WithMaxAttempts(cfg.Pipeline.RetryMaxAttempts),
		llm.WithBaseDelay(cfg.Pipeline.RetryBaseDelay),
	)

	jobs, closeStore, err := repository.OpenStore(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	processor := pipeline.NewProcessor(deduper, textract, poller, normalizer, jobs, cfg.AWS.FormsBucket, logger)
	schemaSvc := schemas.NewService(store, logger)
	exportSvc := export.NewService(jobs, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.New(processor, schemaSvc, exportSvc, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	// Health/reflection listener for probes and grpcurl.
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	lis, err := net.Listen("tcp", cfg.Server.HealthAddr)
	if err != nil {
		logger.Error("health listen failed", "addr", cfg.Server.HealthAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("health serving", "addr", cfg.Server.HealthAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("health serve failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("stopped")
}
