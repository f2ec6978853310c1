package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"github.com/formbridge/formbridge/internal/async"
	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/export"
	"github.com/formbridge/formbridge/internal/ingest"
	"github.com/formbridge/formbridge/internal/llm"
	"github.com/formbridge/formbridge/internal/llm/openai"
	"github.com/formbridge/formbridge/internal/ocr"
	"github.com/formbridge/formbridge/internal/pipeline"
	"github.com/formbridge/formbridge/internal/repository"
	"github.com/formbridge/formbridge/internal/upload"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir         = flag.String("dir", "", "directory to process documents from (required)")
		schemaKey   = flag.String("schema", "", "data schema key for normalization (required)")
		caseType    = flag.String("case-type", "", "case type attached to each submission")
		caseSubType = flag.String("case-subtype", "", "case sub type attached to each submission")
		userID      = flag.String("user", "batch", "user id attached to each submission")
		out         = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers     = flag.Int("workers", 4, "number of concurrent extraction workers")
		exts        = flag.String("exts", "", "comma-separated extensions to include (defaults to the accepted set)")
		watch       = flag.Bool("watch", false, "keep watching the directory for new documents after the initial scan")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *schemaKey == "" {
		printError("Error: --schema is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "extractions.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	queue := async.NewWorkerQueue(func(ctx context.Context, job async.Job) error {
		content, err := os.ReadFile(job.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", job.Path, err)
		}
		_, err = processor.Process(ctx, pipeline.Request{
			FileName:    filepath.Base(job.Path),
			Content:     content,
			SchemaKey:   job.SchemaKey,
			CaseType:    job.CaseType,
			CaseSubType: job.CaseSubType,
			UserID:      job.UserID,
			Timestamp:   job.SubmittedAt.UTC().Format(time.RFC3339),
		})
		return err
	}, logger, async.WithWorkers(*workers))

	var includeExts []string
	if *exts != "" {
		includeExts = strings.Split(*exts, ",")
	}

	logger.Info("starting batch scan", "dir", *dir, "schema_key", *schemaKey)
	results, stats, err := ingest.WalkDirectory(ctx, *dir, includeExts, true, func(ctx context.Context, path string) error {
		return queue.Enqueue(ctx, async.Job{
			Path:        path,
			SchemaKey:   *schemaKey,
			CaseType:    *caseType,
			CaseSubType: *caseSubType,
			UserID:      *userID,
			SubmittedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		os.Exit(1)
	}

	if *watch {
		watchForNewFiles(ctx, *dir, logger, func(path string) {
			_ = queue.Enqueue(ctx, async.Job{
				Path:        path,
				SchemaKey:   *schemaKey,
				CaseType:    *caseType,
				CaseSubType: *caseSubType,
				UserID:      *userID,
				SubmittedAt: time.Now().UTC(),
			})
		})
	}

	drainCtx, cancel := context.WithTimeout(ctx, time.Hour)
	queue.Shutdown(drainCtx)
	cancel()

	failures := 0
	for _, r := range results {
		if r.Err != "" {
			failures++
			logger.Warn("file skipped", "path", r.Path, "error", r.Err)
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	exportSvc := export.NewService(jobs, logger)
	xlsxBytes, err := exportSvc.ExportJobsXLSX(ctx, nil, nil)
	if err != nil {
		logger.Error("failed to export extraction jobs", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"queued", stats.Queued,
		"failed", stats.Failed,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files scanned: %d\n", stats.Scanned)
	fmt.Printf("- Files queued: %d\n", stats.Queued)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}

// watchForNewFiles blocks until interrupted, forwarding newly written
// documents under dir to enqueue.
func watchForNewFiles(ctx context.Context, dir string, logger *slog.Logger, enqueue func(path string)) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{dir},
		Debounce: 500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		return
	}

	logger.Info("watching for new documents", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			enqueue(path)
		case err, ok := <-errs:
			if ok && err != nil {
				logger.Warn("watch error", "error", err)
			}
		}
	}
}
