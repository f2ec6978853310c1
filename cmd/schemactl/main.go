package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/llm"
	"github.com/formbridge/formbridge/internal/schemas"
)

// schemactl uploads schema documents to the schema bucket so the
// schema-document strategy can resolve them at extraction time.
func main() {
	var (
		key  = flag.String("key", "", "data schema key to store the document under (required)")
		file = flag.String("file", "", "path to the JSON-Schema document (required)")
		list = flag.Bool("list-typed", false, "print the built-in typed record keys and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *list {
		for _, k := range llm.RecordKeys() {
			fmt.Println(k)
		}
		return
	}

	if *key == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --key and --file are required")
		flag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("failed to read schema document", "path", *file, "error", err)
		os.Exit(1)
	}
	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		logger.Error("schema document is not a JSON object", "path", *file, "error", err)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if cfg.AWS.SchemasBucket == "" {
		logger.Error("S3_DATA_SCHEMA_BUCKET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}
	store := blobstore.NewS3Store(awsCfg, cfg.AWS.FormsBucket, cfg.AWS.SchemasBucket, logger)

	location, err := schemas.NewService(store, logger).Upload(ctx, *key, document)
	if err != nil {
		logger.Error("schema upload failed", "key", *key, "error", err)
		os.Exit(1)
	}
	fmt.Printf("uploaded %q -> %s\n", *key, location)
}
