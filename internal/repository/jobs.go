package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge/constants"
)

// ExtractionJob records one pipeline run from upload to normalized record.
type ExtractionJob struct {
	ID          uuid.UUID
	FileName    string
	ContentHash string
	SchemaKey   string
	CaseType    string
	CaseSubType string
	UserID      string
	Status      constants.JobStatus
	ResultJSON  []byte
	ErrorText   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobStore persists extraction job records.
type JobStore interface {
	Create(ctx context.Context, job *ExtractionJob) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error
	MarkSucceeded(ctx context.Context, id uuid.UUID, resultJSON []byte) error
	MarkFailed(ctx context.Context, id uuid.UUID, errText string) error
	GetByID(ctx context.Context, id uuid.UUID) (*ExtractionJob, error)
	List(ctx context.Context, from, to *time.Time) ([]*ExtractionJob, error)
}

// windowBounds renders an optional date window as RFC3339Nano strings for the
// TEXT timestamp columns. An empty string means "unbounded".
func windowBounds(from, to *time.Time) (string, string) {
	var lo, hi string
	if from != nil {
		lo = from.UTC().Format(time.RFC3339Nano)
	}
	if to != nil {
		hi = to.UTC().Format(time.RFC3339Nano)
	}
	return lo, hi
}
