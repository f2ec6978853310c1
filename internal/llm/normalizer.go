package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/formbridge/formbridge/internal/common"
)

// Normalizer coerces semi-structured extraction text into a validated,
// schema-conformant record. It is the sole owner of retry logic in the
// pipeline: the extraction layers below it never retry.
type Normalizer struct {
	invoker     Invoker
	strategy    Strategy
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

type NormalizerOption func(*Normalizer)

func WithMaxAttempts(n int) NormalizerOption {
	return func(nm *Normalizer) {
		if n > 0 {
			nm.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) NormalizerOption {
	return func(nm *Normalizer) {
		if d > 0 {
			nm.baseDelay = d
		}
	}
}

func NewNormalizer(invoker Invoker, strategy Strategy, logger *slog.Logger, opts ...NormalizerOption) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{
		invoker:     invoker,
		strategy:    strategy,
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   2 * time.Second,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize invokes the model with inputText under the output constraint the
// strategy prepares for schemaKey, validates the response, and returns the
// JSON-safe record.
//
// Empty input fails with an invalid-input error before any model call or
// retry accounting. Validation failures retry immediately; any other failure
// waits baseDelay * attempt before retrying. Exhausting the budget fails
// with a ProcessingError carrying the last cause.
func (n *Normalizer) Normalize(ctx context.Context, schemaKey, inputText string) (map[string]any, error) {
	if strings.TrimSpace(inputText) == "" {
		return nil, common.NewAppError("NORMALIZE_INPUT", "input text must be provided", common.ErrInvalidInput)
	}

	rid := uuid.New().String()
	start := time.Now()
	n.logger.Info("normalize.start",
		"req_id", rid,
		"schema_key", schemaKey,
		"text_len", len(inputText),
		"max_attempts", n.maxAttempts,
	)

	schema, err := n.strategy.OutputSchema(ctx, schemaKey)
	if err != nil {
		n.logger.Error("normalize.prepare_failed", "req_id", rid, "schema_key", schemaKey, "error", err)
		return nil, err
	}

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		raw, err := n.invoker.InvokeStructured(ctx, SystemPrompt, inputText, schema)
		if err == nil {
			if verr := ValidateJSONAgainstSchema(schema, raw); verr != nil {
				n.logger.Error("normalize.validation_failed",
					"req_id", rid, "attempt", attempt, "error", verr,
				)
				if attempt == n.maxAttempts {
					return nil, &common.ProcessingError{Reason: common.ReasonValidationFailed, Cause: verr}
				}
				continue
			}

			out, derr := n.strategy.Decode(schemaKey, raw)
			if derr == nil {
				n.logger.Info("normalize.ok",
					"req_id", rid,
					"schema_key", schemaKey,
					"attempts", attempt,
					"elapsed_ms", time.Since(start).Milliseconds(),
				)
				return out, nil
			}
			err = derr
		}

		n.logger.Error("normalize.attempt_failed",
			"req_id", rid, "attempt", attempt, "error", err,
		)
		if attempt == n.maxAttempts {
			return nil, &common.ProcessingError{Reason: common.ReasonMaxRetriesExceeded, Cause: err}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(n.baseDelay * time.Duration(attempt)):
		}
	}

	// Unreachable: the final attempt always returns above.
	return nil, &common.ProcessingError{Reason: common.ReasonMaxRetriesExceeded}
}
