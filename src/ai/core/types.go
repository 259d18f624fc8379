package core

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	SystemPrompt        string
}

// Result is a generated answer plus the model that produced it.
type Result struct {
	Text  string
	Model string
}

// Client is a provider-agnostic interface for the single LLM operation the
// pipeline needs: turn a user question into answer text.
type Client interface {
	AnswerQuestion(ctx context.Context, question string, opts Options) (Result, error)
}
