package llm

import "context"

// Invoker is the language-model boundary the normalizer depends on. The
// returned bytes are the model's JSON output, produced under the given
// output schema constraint.
type Invoker interface {
	InvokeStructured(ctx context.Context, systemPrompt, userContent string, outputSchema map[string]any) ([]byte, error)
}

// SystemPrompt is the fixed instruction for form-data normalization.
const SystemPrompt = "Extract the form data."
