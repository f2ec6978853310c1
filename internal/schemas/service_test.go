package schemas

import (
	"context"
	"errors"
	"testing"

	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/common"
)

func TestUploadStoresCompiledSchema(t *testing.T) {
	store := blobstore.NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	doc := map[string]any{
		"type":       "object",
		"properties": map[string]any{"title": map[string]any{"type": "string"}},
	}
	location, err := svc.Upload(ctx, " deed ", doc)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if location != "memory://schemas/deed.json" {
		t.Errorf("location = %q", location)
	}

	raw, err := store.Get(ctx, blobstore.RoleSchemas, "deed.json")
	if err != nil {
		t.Fatalf("stored document missing: %v", err)
	}
	if len(raw) == 0 {
		t.Error("stored document is empty")
	}
}

func TestUploadRejectsBrokenSchema(t *testing.T) {
	store := blobstore.NewMemoryStore()
	svc := NewService(store, nil)

	// "type" must be a string or array of strings; a number cannot compile
	_, err := svc.Upload(context.Background(), "broken", map[string]any{"type": 12})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if store.Len() != 0 {
		t.Error("broken schema reached the store")
	}
}

func TestUploadRequiresKey(t *testing.T) {
	svc := NewService(blobstore.NewMemoryStore(), nil)
	if _, err := svc.Upload(context.Background(), "   ", map[string]any{"type": "object"}); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
