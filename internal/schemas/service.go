package schemas

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/common"
	"github.com/formbridge/formbridge/internal/llm"
)

// Service stores uploaded schema documents in the schema bucket. Documents
// are compiled before storage so a broken schema is rejected up front instead
// of failing every later extraction against it.
type Service struct {
	store  blobstore.Store
	logger *slog.Logger
}

func NewService(store blobstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Upload validates and persists a schema document under key + ".json",
// returning the stored location.
func (s *Service) Upload(ctx context.Context, key string, document map[string]any) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", common.NewAppError("SCHEMA_UPLOAD", "schema key is required", common.ErrInvalidInput)
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return "", common.WrapError(err, "marshal schema document")
	}
	if err := llm.CompileSchemaDocument(raw); err != nil {
		return "", common.NewAppError("SCHEMA_UPLOAD", err.Error(), common.ErrValidation)
	}

	location, err := s.store.Put(ctx, blobstore.RoleSchemas, key+".json", raw, "application/json")
	if err != nil {
		return "", common.WrapError(err, "store schema document")
	}

	s.logger.Info("schema.upload.ok", "key", key, "location", location)
	return location, nil
}
