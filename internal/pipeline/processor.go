package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge/constants"
	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/extract"
	"github.com/formbridge/formbridge/internal/llm"
	"github.com/formbridge/formbridge/internal/ocr"
	"github.com/formbridge/formbridge/internal/repository"
	"github.com/formbridge/formbridge/internal/upload"
)

// Normalizer is the schema-guided normalization stage the processor drives.
type Normalizer interface {
	Normalize(ctx context.Context, schemaKey, inputText string) (map[string]any, error)
}

// Request is one extraction submission.
type Request struct {
	FileName    string
	Content     []byte
	SchemaKey   string
	CaseType    string
	CaseSubType string
	UserID      string
	Timestamp   string
}

// Result is the pipeline's output for one request.
type Result struct {
	JobID        uuid.UUID
	StoredName   string
	Deduplicated bool
	FormText     string
	Record       map[string]any
}

// Processor coordinates upload dedup, OCR, block-graph reconstruction and
// schema-guided normalization for one request. It holds no mutable state;
// every run is a pure function over its inputs plus the external stores.
type Processor struct {
	deduper     *upload.Deduper
	analyzer    ocr.Analyzer
	poller      *ocr.Poller
	normalizer  Normalizer
	jobs        repository.JobStore
	formsBucket string
	logger      *slog.Logger
}

func NewProcessor(
	deduper *upload.Deduper,
	analyzer ocr.Analyzer,
	poller *ocr.Poller,
	normalizer Normalizer,
	jobs repository.JobStore,
	formsBucket string,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		deduper:     deduper,
		analyzer:    analyzer,
		poller:      poller,
		normalizer:  normalizer,
		jobs:        jobs,
		formsBucket: formsBucket,
		logger:      logger,
	}
}

// Process runs the full pipeline: dedup upload -> OCR (sync for images,
// async for documents) -> block reconstruction -> normalization. Failures
// below the normalizer propagate immediately, wrapped with the source file
// name and stage; the normalizer owns all retrying.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	put, err := p.deduper.PutIfAbsent(ctx, req.FileName, req.Content)
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("upload %q", req.FileName))
	}
	storedName := put.StoredName

	job := &repository.ExtractionJob{
		ID:          uuid.New(),
		FileName:    storedName,
		ContentHash: put.Hash,
		SchemaKey:   req.SchemaKey,
		CaseType:    req.CaseType,
		CaseSubType: req.CaseSubType,
		UserID:      req.UserID,
		Status:      constants.JobStatusRunning,
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, common.WrapError(err, "record extraction job")
	}

	p.logger.Info("pipeline.start",
		"job_id", job.ID,
		"file", storedName,
		"schema_key", req.SchemaKey,
		"deduplicated", put.Deduplicated,
	)

	resp, err := p.analyze(ctx, storedName)
	if err != nil {
		p.fail(ctx, job.ID, err)
		return nil, common.WrapError(err, fmt.Sprintf("ocr stage for %q", storedName))
	}
	if err := p.jobs.UpdateStatus(ctx, job.ID, constants.JobStatusOCROK); err != nil {
		p.logger.Warn("pipeline.job_update_failed", "job_id", job.ID, "error", err)
	}

	result := extract.Build(resp.Blocks)
	formText := result.RenderText()
	p.logger.Info("pipeline.ocr.ok",
		"job_id", job.ID,
		"lines", len(result.Lines),
		"tables", len(result.Tables),
		"form_fields", len(result.FormFields),
	)

	record, err := p.normalizer.Normalize(ctx, req.SchemaKey, p.promptText(req.SchemaKey, formText))
	if err != nil {
		p.fail(ctx, job.ID, err)
		return nil, common.WrapError(err, fmt.Sprintf("normalize stage for %q", storedName))
	}

	if encoded, merr := json.Marshal(record); merr == nil {
		if err := p.jobs.MarkSucceeded(ctx, job.ID, encoded); err != nil {
			p.logger.Warn("pipeline.job_update_failed", "job_id", job.ID, "error", err)
		}
	}

	p.logger.Info("pipeline.ok", "job_id", job.ID, "file", storedName)
	return &Result{
		JobID:        job.ID,
		StoredName:   storedName,
		Deduplicated: put.Deduplicated,
		FormText:     formText,
		Record:       record,
	}, nil
}

// analyze routes the document to the provider: single-page images go through
// the synchronous call, everything else is submitted as an async job and
// polled to completion. Both read from the forms bucket.
func (p *Processor) analyze(ctx context.Context, storedName string) (*ocr.BlockResponse, error) {
	ref := ocr.DocumentRef{Bucket: p.formsBucket, Key: storedName}
	if constants.MapExtToFormat(filepath.Ext(storedName)) == constants.IMAGE {
		return p.analyzer.AnalyzeSync(ctx, ref, ocr.DefaultFeatures)
	}

	jobID, err := p.poller.Submit(ctx, ref, ocr.DefaultFeatures)
	if err != nil {
		return nil, err
	}
	return p.poller.Poll(ctx, jobID)
}

// promptText prepends the static case details for registration cases, so
// the model can echo workflow routing fields the form itself never carries.
func (p *Processor) promptText(schemaKey, formText string) string {
	if schemaKey != llm.KeyRegistration {
		return formText
	}
	details, err := llm.ToJSONSafe(llm.DefaultCaseDetails())
	if err != nil {
		return formText
	}
	encoded, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return formText
	}

	var b strings.Builder
	b.WriteString("Static Case Details:\n")
	b.Write(encoded)
	b.WriteString("\n\n")
	b.WriteString(formText)
	return b.String()
}

func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	if err := p.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		p.logger.Warn("pipeline.job_update_failed", "job_id", jobID, "error", err)
	}
}
