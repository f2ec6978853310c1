package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/formbridge/formbridge/constants"
	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/cache"
	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/extract"
	"github.com/formbridge/formbridge/internal/llm"
	"github.com/formbridge/formbridge/internal/ocr"
	"github.com/formbridge/formbridge/internal/repository"
	"github.com/formbridge/formbridge/internal/upload"
)

type fakeAnalyzer struct {
	syncCalls  int
	asyncCalls int
	blocks     []extract.Block
}

func (f *fakeAnalyzer) AnalyzeSync(context.Context, ocr.DocumentRef, []ocr.Feature) (*ocr.BlockResponse, error) {
	f.syncCalls++
	return &ocr.BlockResponse{Blocks: f.blocks}, nil
}

func (f *fakeAnalyzer) Submit(context.Context, ocr.DocumentRef, []ocr.Feature) (string, error) {
	f.asyncCalls++
	return "job-1", nil
}

func (f *fakeAnalyzer) JobStatus(context.Context, string) (ocr.JobState, *ocr.BlockResponse, error) {
	return ocr.JobSucceeded, &ocr.BlockResponse{Blocks: f.blocks}, nil
}

type fakeNormalizer struct {
	lastKey  string
	lastText string
	record   map[string]any
	err      error
}

func (f *fakeNormalizer) Normalize(_ context.Context, schemaKey, inputText string) (map[string]any, error) {
	f.lastKey = schemaKey
	f.lastText = inputText
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func sampleBlocks() []extract.Block {
	return []extract.Block{
		{ID: "l1", Type: extract.BlockTypeLine, Text: "REGISTRATION FORM"},
		{ID: "w1", Type: extract.BlockTypeWord, Text: "Organisation"},
		{ID: "w2", Type: extract.BlockTypeWord, Text: "Helping Hands"},
		{ID: "v1", Type: extract.BlockTypeKeyValueSet, EntityTypes: []extract.EntityType{extract.EntityValue},
			Relationships: []extract.Relationship{{Type: extract.RelationshipChild, IDs: []string{"w2"}}}},
		{ID: "k1", Type: extract.BlockTypeKeyValueSet, EntityTypes: []extract.EntityType{extract.EntityKey},
			Relationships: []extract.Relationship{
				{Type: extract.RelationshipChild, IDs: []string{"w1"}},
				{Type: extract.RelationshipValue, IDs: []string{"v1"}},
			}},
	}
}

type testEnv struct {
	processor  *Processor
	analyzer   *fakeAnalyzer
	normalizer *fakeNormalizer
	jobs       repository.JobStore
	store      *blobstore.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	redisCache := cache.NewRedisCache(cache.RedisConfig{Addr: mr.Addr()}, nil)
	t.Cleanup(func() { _ = redisCache.Close() })

	store := blobstore.NewMemoryStore()
	deduper := upload.NewDeduper(redisCache, store, time.Hour, nil)

	db, err := repository.OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	jobs := repository.NewSQLiteJobStore(db, nil)
	if err := jobs.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	analyzer := &fakeAnalyzer{blocks: sampleBlocks()}
	poller := ocr.NewPoller(analyzer, nil, ocr.WithInterval(time.Millisecond), ocr.WithMaxAttempts(3))
	normalizer := &fakeNormalizer{record: map[string]any{"organisation_name": "Helping Hands"}}

	return &testEnv{
		processor:  NewProcessor(deduper, analyzer, poller, normalizer, jobs, "forms-bucket", nil),
		analyzer:   analyzer,
		normalizer: normalizer,
		jobs:       jobs,
		store:      store,
	}
}

func TestProcessImageUsesSyncAnalysis(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.processor.Process(context.Background(), Request{
		FileName:  "card.png",
		Content:   []byte("fake-png"),
		SchemaKey: "card",
		UserID:    "usr_1",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if env.analyzer.syncCalls != 1 || env.analyzer.asyncCalls != 0 {
		t.Errorf("sync=%d async=%d, want sync path only", env.analyzer.syncCalls, env.analyzer.asyncCalls)
	}
	if res.Record["organisation_name"] != "Helping Hands" {
		t.Errorf("record = %v", res.Record)
	}
	if !strings.Contains(res.FormText, "Organisation: Helping Hands") {
		t.Errorf("form text = %q", res.FormText)
	}

	job, err := env.jobs.GetByID(context.Background(), res.JobID)
	if err != nil {
		t.Fatalf("job lookup: %v", err)
	}
	if job.Status != constants.JobStatusSucceeded {
		t.Errorf("job status = %s", job.Status)
	}
	if job.ContentHash != upload.ComputeHash([]byte("fake-png")) {
		t.Errorf("job content hash = %q, want the upload digest", job.ContentHash)
	}
	if !strings.Contains(string(job.ResultJSON), "Helping Hands") {
		t.Errorf("job result = %s", job.ResultJSON)
	}
}

func TestProcessDocumentUsesAsyncAnalysis(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.processor.Process(context.Background(), Request{
		FileName:  "form.pdf",
		Content:   []byte("%PDF-1.4"),
		SchemaKey: "resume",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if env.analyzer.asyncCalls != 1 || env.analyzer.syncCalls != 0 {
		t.Errorf("sync=%d async=%d, want async path only", env.analyzer.syncCalls, env.analyzer.asyncCalls)
	}
}

func TestProcessRegistrationPrependsCaseDetails(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.processor.Process(context.Background(), Request{
		FileName:  "ngo.pdf",
		Content:   []byte("%PDF-1.4"),
		SchemaKey: llm.KeyRegistration,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasPrefix(env.normalizer.lastText, "Static Case Details:") {
		t.Errorf("prompt does not lead with case details:\n%s", env.normalizer.lastText[:min(len(env.normalizer.lastText), 120)])
	}
	if !strings.Contains(env.normalizer.lastText, "REGISTRATION_OF_NGO") {
		t.Error("case details missing from prompt")
	}
	if !strings.Contains(env.normalizer.lastText, "Extracted Form Fields:") {
		t.Error("form text missing from prompt")
	}
}

func TestProcessNonRegistrationOmitsCaseDetails(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.processor.Process(context.Background(), Request{
		FileName:  "cv.pdf",
		Content:   []byte("%PDF-1.4"),
		SchemaKey: "resume",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if strings.Contains(env.normalizer.lastText, "Static Case Details:") {
		t.Error("case details leaked into a non-registration prompt")
	}
}

func TestProcessInvalidFilenameFailsBeforeAnalysis(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.processor.Process(context.Background(), Request{
		FileName:  "malware.exe",
		Content:   []byte("MZ"),
		SchemaKey: "card",
	})
	if !errors.Is(err, common.ErrInvalidFilename) {
		t.Fatalf("error = %v, want ErrInvalidFilename", err)
	}
	if env.analyzer.syncCalls+env.analyzer.asyncCalls != 0 {
		t.Error("analysis ran for a rejected filename")
	}
	if env.store.Len() != 0 {
		t.Error("rejected file reached the store")
	}
}

func TestProcessNormalizationFailureMarksJobFailed(t *testing.T) {
	env := newTestEnv(t)
	env.normalizer.err = &common.ProcessingError{Reason: common.ReasonMaxRetriesExceeded, Cause: errors.New("model unavailable")}

	_, err := env.processor.Process(context.Background(), Request{
		FileName:  "card.png",
		Content:   []byte("fake-png"),
		SchemaKey: "card",
	})
	var perr *common.ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ProcessingError", err)
	}

	jobs, lerr := env.jobs.List(context.Background(), nil, nil)
	if lerr != nil {
		t.Fatalf("List: %v", lerr)
	}
	if len(jobs) != 1 {
		t.Fatalf("job count = %d", len(jobs))
	}
	if jobs[0].Status != constants.JobStatusFailed {
		t.Errorf("job status = %s, want FAILED", jobs[0].Status)
	}
	if jobs[0].ErrorText == "" {
		t.Error("failure reason not recorded")
	}
}
