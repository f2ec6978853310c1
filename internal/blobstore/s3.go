package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/formbridge/formbridge/internal/common"
)

// S3Store persists blobs in two S3 buckets: form documents and schema
// documents.
type S3Store struct {
	client  *s3.Client
	region  string
	buckets map[BucketRole]string
	logger  *slog.Logger
}

func NewS3Store(cfg aws.Config, formsBucket, schemasBucket string, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{
		client: s3.NewFromConfig(cfg),
		region: cfg.Region,
		buckets: map[BucketRole]string{
			RoleForms:   formsBucket,
			RoleSchemas: schemasBucket,
		},
		logger: logger,
	}
}

// Put uploads body under key and returns the object URL.
func (s *S3Store) Put(ctx context.Context, role BucketRole, key string, body []byte, contentType string) (string, error) {
	bucket, ok := s.buckets[role]
	if !ok || bucket == "" {
		return "", common.NewAppError("S3_PUT", fmt.Sprintf("no bucket configured for role %q", role), common.ErrInvalidInput)
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		s.logger.Error("s3.put.failed", "bucket", bucket, "key", key, "error", err)
		return "", common.NewAppError("S3_PUT", "upload object", common.ErrProvider)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
	s.logger.Debug("s3.put.ok", "url", url, "bytes", len(body))
	return url, nil
}

// Get downloads the object stored under key.
func (s *S3Store) Get(ctx context.Context, role BucketRole, key string) ([]byte, error) {
	bucket, ok := s.buckets[role]
	if !ok || bucket == "" {
		return nil, common.NewAppError("S3_GET", fmt.Sprintf("no bucket configured for role %q", role), common.ErrInvalidInput)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("s3.get.failed", "bucket", bucket, "key", key, "error", err)
		return nil, common.NewAppError("S3_GET", "download object", common.ErrProvider)
	}
	defer func() {
		if cerr := out.Body.Close(); cerr != nil {
			s.logger.Warn("s3.get.body_close", "error", cerr)
		}
	}()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, common.WrapError(err, "read object body")
	}
	return b, nil
}

var _ Store = (*S3Store)(nil)
