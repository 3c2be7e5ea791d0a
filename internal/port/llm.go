package port

import "context"

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// GenOptions holds decoding parameters.
type GenOptions struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}
