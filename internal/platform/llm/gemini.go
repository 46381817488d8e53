package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures one Gemini-backed generator.
type GeminiConfig struct {
	Model             string
	Temperature       *float32
	SystemInstruction string
	Timeout           time.Duration
}

// GeminiClient owns the underlying genai client. Several generators with
// different models can share one client.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

type geminiGenerator struct {
	model   *genai.GenerativeModel
	name    string
	timeout time.Duration
}

// Generator returns a TextGenerator bound to the configured model. Responses
// are requested as application/json.
func (c *GeminiClient) Generator(cfg GeminiConfig) TextGenerator {
	model := c.client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	if cfg.Temperature != nil {
		model.SetTemperature(*cfg.Temperature)
	}
	if cfg.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(cfg.SystemInstruction)}}
	}
	return &geminiGenerator{model: model, name: cfg.Model, timeout: cfg.Timeout}
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (g *geminiGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ContentResponse{}, ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, ErrEmptyResponse
	}

	out := ContentResponse{
		Content: sb.String(),
		Model:   g.name,
		Latency: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
