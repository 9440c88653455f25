package ai

import (
	"context"
)

const ProviderGemini = "gemini"

// Generator is a text-completion backend: one prompt in, one answer out.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
