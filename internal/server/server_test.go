package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/pipeline"
)

type stubPipeline struct {
	lastReq pipeline.Request
	result  *pipeline.Result
	err     error
}

func (s *stubPipeline) Process(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubSchemas struct {
	key string
	err error
}

func (s *stubSchemas) Upload(_ context.Context, key string, _ map[string]any) (string, error) {
	s.key = key
	if s.err != nil {
		return "", s.err
	}
	return "memory://schemas/" + key + ".json", nil
}

type stubExporter struct{ out []byte }

func (s *stubExporter) ExportJobsXLSX(context.Context, *time.Time, *time.Time) ([]byte, error) {
	return s.out, nil
}

func newTestServer(p Pipeline) (*Server, *stubSchemas) {
	schemas := &stubSchemas{}
	return New(p, schemas, &stubExporter{out: []byte("PK")}, nil), schemas
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestExtractHappyPath(t *testing.T) {
	p := &stubPipeline{result: &pipeline.Result{
		JobID:    uuid.New(),
		FormText: "Extracted Form Fields:\n- Vendor: Acme\n",
		Record:   map[string]any{"full_name": "Ada"},
	}}
	srv, _ := newTestServer(p)

	body, ctype := multipartBody(t, "card.png", []byte("fake-png"), map[string]string{
		"data_schema_key": "card",
		"case_type":       "REGISTRATION",
		"case_sub_type":   "REGISTRATION_OF_NGO",
		"user_id":         "usr_1",
		"timestamp":       "2025-06-01T10:00:00Z",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/extract/", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["data_schema_key"] != "card" || resp["user_id"] != "usr_1" {
		t.Errorf("echoed metadata = %v", resp)
	}
	if resp["timestamp"] != "2025-06-01T10:00:00Z" {
		t.Errorf("timestamp = %v", resp["timestamp"])
	}
	if !strings.Contains(resp["form_text_data"].(string), "Vendor: Acme") {
		t.Errorf("form_text_data = %v", resp["form_text_data"])
	}
	extracted := resp["extracted_form_data"].(map[string]any)
	if extracted["full_name"] != "Ada" {
		t.Errorf("extracted_form_data = %v", extracted)
	}
	if p.lastReq.FileName != "card.png" || string(p.lastReq.Content) != "fake-png" {
		t.Errorf("pipeline got %+v", p.lastReq)
	}
}

func TestExtractDefaultsTimestamp(t *testing.T) {
	p := &stubPipeline{result: &pipeline.Result{Record: map[string]any{}}}
	srv, _ := newTestServer(p)

	body, ctype := multipartBody(t, "card.png", []byte("x"), map[string]string{
		"data_schema_key": "card",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/extract/", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if p.lastReq.Timestamp == "" {
		t.Error("timestamp not defaulted")
	}
	if _, err := time.Parse(time.RFC3339, p.lastReq.Timestamp); err != nil {
		t.Errorf("defaulted timestamp %q not RFC3339: %v", p.lastReq.Timestamp, err)
	}
}

func TestExtractMissingSchemaKey(t *testing.T) {
	srv, _ := newTestServer(&stubPipeline{})

	body, ctype := multipartBody(t, "card.png", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/extract/", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExtractMissingFile(t *testing.T) {
	srv, _ := newTestServer(&stubPipeline{})

	body, ctype := multipartBody(t, "", nil, map[string]string{"data_schema_key": "card"})
	req := httptest.NewRequest(http.MethodPost, "/api/extract/", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExtractErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"processing error", &common.ProcessingError{Reason: common.ReasonMaxRetriesExceeded}, http.StatusBadRequest},
		{"invalid filename", common.NewAppError("UPLOAD_FILENAME", "bad ext", common.ErrInvalidFilename), http.StatusBadRequest},
		{"invalid input", common.NewAppError("SCHEMA_KEY", "unknown key", common.ErrInvalidInput), http.StatusBadRequest},
		{"provider failure", common.NewAppError("OCR_JOB_FAILED", "job failed", common.ErrProvider), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(&stubPipeline{err: tc.err})
			body, ctype := multipartBody(t, "card.png", []byte("x"), map[string]string{"data_schema_key": "card"})
			req := httptest.NewRequest(http.MethodPost, "/api/extract/", body)
			req.Header.Set("Content-Type", ctype)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusInternalServerError &&
				!strings.Contains(rec.Body.String(), "internal server error") {
				t.Errorf("5xx body leaks details: %s", rec.Body.String())
			}
		})
	}
}

func TestUploadSchema(t *testing.T) {
	srv, schemas := newTestServer(&stubPipeline{})

	payload := `{"key":"deed","data_schema":{"type":"object"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/upload-schema", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if schemas.key != "deed" {
		t.Errorf("uploaded key = %q", schemas.key)
	}
	if !strings.Contains(rec.Body.String(), "memory://schemas/deed.json") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUploadSchemaRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(&stubPipeline{})

	for name, payload := range map[string]string{
		"malformed json": `{"key": `,
		"missing key":    `{"data_schema":{"type":"object"}}`,
		"missing schema": `{"key":"deed"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/upload-schema", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(&stubPipeline{})

	req := httptest.NewRequest(http.MethodGet, "/api/export?from=2025-01-01&to=2025-12-31", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/export?from=tomorrow", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}
}

func TestWelcome(t *testing.T) {
	srv, _ := newTestServer(&stubPipeline{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
