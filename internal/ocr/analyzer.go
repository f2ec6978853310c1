package ocr

import (
	"context"

	"github.com/formbridge/formbridge/internal/extract"
)

// Feature selects which structures the provider analyzes.
type Feature string

const (
	FeatureForms  Feature = "FORMS"
	FeatureTables Feature = "TABLES"
)

// DefaultFeatures is the fixed feature set used for form documents.
var DefaultFeatures = []Feature{FeatureForms, FeatureTables}

// DocumentRef points at the document to analyze: either raw bytes or an
// object in the forms bucket. Exactly one should be set.
type DocumentRef struct {
	Bytes  []byte
	Bucket string
	Key    string
}

// BlockResponse is the provider's raw output: a flat block graph.
type BlockResponse struct {
	Blocks []extract.Block
}

// JobState tracks an asynchronous analysis job.
type JobState string

const (
	JobSubmitted  JobState = "SUBMITTED"
	JobInProgress JobState = "IN_PROGRESS"
	JobSucceeded  JobState = "SUCCEEDED"
	JobFailed     JobState = "FAILED"
)

// Analyzer is the synchronous provider boundary (single-page images).
type Analyzer interface {
	AnalyzeSync(ctx context.Context, ref DocumentRef, features []Feature) (*BlockResponse, error)
}

// AsyncAnalyzer is the asynchronous provider boundary (multi-page documents).
// Submit fails with a provider error if the submission is rejected (bad
// credentials, malformed reference, unsupported document). JobStatus reports
// the provider-side state; the response is non-nil only once SUCCEEDED.
type AsyncAnalyzer interface {
	Submit(ctx context.Context, ref DocumentRef, features []Feature) (string, error)
	JobStatus(ctx context.Context, jobID string) (JobState, *BlockResponse, error)
}
