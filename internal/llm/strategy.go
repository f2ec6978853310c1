package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/formbridge/formbridge/internal/blobstore"
	"github.com/formbridge/formbridge/internal/common"
)

// StrategyKind is the fixed set of normalization strategies. Selected by
// explicit configuration, not by runtime lookup.
type StrategyKind int

const (
	// StrategyTypedRecord constrains the model with a predeclared typed
	// record selected by data schema key.
	StrategyTypedRecord StrategyKind = iota
	// StrategySchemaDocument constrains the model with a schema document
	// fetched from the schema bucket by key.
	StrategySchemaDocument
)

// ParseStrategyKind maps a configuration string to a StrategyKind.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "typed", "typed_record", "":
		return StrategyTypedRecord, nil
	case "schema", "schema_document":
		return StrategySchemaDocument, nil
	default:
		return 0, common.NewAppError("STRATEGY", fmt.Sprintf("unknown normalization strategy %q", s), common.ErrInvalidInput)
	}
}

// Strategy prepares the model's output constraint for a data schema key and
// decodes the validated response into a JSON-safe mapping.
type Strategy interface {
	OutputSchema(ctx context.Context, schemaKey string) (map[string]any, error)
	Decode(schemaKey string, raw []byte) (map[string]any, error)
}

// TypedRecordStrategy resolves schema keys against the static typed-record
// registry. The model response is decoded into the typed record to enforce
// its shape, then flattened recursively into a plain mapping.
type TypedRecordStrategy struct{}

func (TypedRecordStrategy) OutputSchema(_ context.Context, schemaKey string) (map[string]any, error) {
	def, ok := LookupRecord(schemaKey)
	if !ok {
		return nil, common.NewAppError("SCHEMA_KEY",
			fmt.Sprintf("unknown data schema key %q (recognized: %s)", schemaKey, strings.Join(RecordKeys(), ", ")),
			common.ErrInvalidInput)
	}
	return def.Schema(), nil
}

func (TypedRecordStrategy) Decode(schemaKey string, raw []byte) (map[string]any, error) {
	def, ok := LookupRecord(schemaKey)
	if !ok {
		return nil, common.NewAppError("SCHEMA_KEY",
			fmt.Sprintf("unknown data schema key %q", schemaKey), common.ErrInvalidInput)
	}

	rec := def.New()
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", schemaKey, err)
	}

	// Round-trip through JSON to flatten the typed record into the closed
	// shape set, then run the JSON-safety conversion over it.
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("flatten %s record: %w", schemaKey, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("flatten %s record: %w", schemaKey, err)
	}
	safe, err := ToJSONSafe(m)
	if err != nil {
		return nil, err
	}
	return safe.(map[string]any), nil
}

// SchemaDocumentStrategy fetches a generic JSON-Schema document from the
// schema bucket by key. The response is returned largely as-is: the model
// was constrained by the schema, so only JSON-safety is re-checked.
type SchemaDocumentStrategy struct {
	Store blobstore.Store
}

func (s SchemaDocumentStrategy) OutputSchema(ctx context.Context, schemaKey string) (map[string]any, error) {
	raw, err := s.Store.Get(ctx, blobstore.RoleSchemas, schemaKey+".json")
	if err != nil {
		return nil, common.WrapError(err, fmt.Sprintf("fetch schema document %q", schemaKey))
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse schema document %q: %w", schemaKey, err)
	}
	return schema, nil
}

func (s SchemaDocumentStrategy) Decode(_ string, raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	safe, err := ToJSONSafe(m)
	if err != nil {
		return nil, err
	}
	return safe.(map[string]any), nil
}

var (
	_ Strategy = TypedRecordStrategy{}
	_ Strategy = SchemaDocumentStrategy{}
)
