package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Usage tracks the tokens consumed by a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ContentResponse contains the generated text and call metadata.
type ContentResponse struct {
	Content string
	Model   string
	Usage   Usage
	Latency time.Duration
}

// TextGenerator generates text from a prompt. Implementations are expected to
// return a single JSON document when asked for one.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("no content generated")

// ExtractJSON trims surrounding prose and markdown code fences from a model
// reply, returning the outermost JSON object.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
