package documentsvc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrNoAPIKey is returned when the generative model client is created without credentials.
var ErrNoAPIKey = errors.New("no API key")

// Generator produces a text response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIConfig contains configuration parameters for the Gemini client.
type GenAIConfig struct {
	// APIKey authenticates against the Gemini API
	APIKey string `env:"API_KEY" default:""`
	// Model is the model name used for generation
	Model string `env:"MODEL" default:"gemini-2.0-flash"`
}

// GenAIGenerator implements Generator with the Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

var _ Generator = (*GenAIGenerator)(nil)

// NewGenAIGenerator creates a Gemini client from the configuration.
func NewGenAIGenerator(ctx context.Context, cfg GenAIConfig) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	//nolint:exhaustruct
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("new genai client: %w", err)
	}

	return &GenAIGenerator{client: client, model: cfg.Model}, nil
}

// Generate implements Generator.Generate.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}
