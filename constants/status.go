package constants

// JobStatus is the canonical status for rows in extraction_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // accepted, waiting for a worker
	JobStatusRunning   JobStatus = "RUNNING"   // OCR or normalization in progress
	JobStatusOCROK     JobStatus = "OCR_OK"    // stage 1 completed (blocks extracted)
	JobStatusSucceeded JobStatus = "SUCCEEDED" // stage 2 completed (schema-conformant record)
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)
