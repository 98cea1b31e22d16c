package agent

import (
	"context"

	"github.com/cg-assist/backend/internal/ollama"
)

// Generator produces model completions for the reasoning and answering
// phases.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) error
}

// OllamaGenerator binds a model name to an Ollama client.
type OllamaGenerator struct {
	client *ollama.Client
	model  string
}

// NewOllamaGenerator creates a generator for the given model.
func NewOllamaGenerator(client *ollama.Client, model string) *OllamaGenerator {
	return &OllamaGenerator{client: client, model: model}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
	})
}

func (g *OllamaGenerator) GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) error {
	return g.client.GenerateStream(ctx, &ollama.GenerateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: true,
	}, onChunk)
}
