package async

import (
	"context"
	"time"
)

// Job is the smallest useful unit of batch work: one file to run through the
// extraction pipeline.
type Job struct {
	Path        string
	SchemaKey   string
	CaseType    string
	CaseSubType string
	UserID      string
	SubmittedAt time.Time
	TraceID     string
}

// Queue accepts jobs for background processing. One worker per in-flight
// extraction isolates slow OCR jobs from unrelated requests.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
