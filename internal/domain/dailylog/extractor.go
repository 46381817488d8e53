package dailylog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/schedule"
	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/llm"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var extractorTmpl = template.Must(template.New("extractor").Parse(extractorPrompt))

// Extraction is the structured result of one extraction call. StructuredData
// and RiskLevel always come from the same call.
type Extraction struct {
	StructuredData        schedule.StructuredData `json:"structuredData"`
	RiskLevel             RiskLevel               `json:"riskLevel"`
	Sentiment             string                  `json:"sentiment,omitempty"`
	UrgentAttentionNeeded bool                    `json:"urgentAttentionNeeded"`
}

// Validate checks the parts of an extraction the pipeline depends on.
func (e *Extraction) Validate() error {
	if e == nil {
		return fmt.Errorf("extraction is empty")
	}
	if !e.RiskLevel.Valid() {
		return fmt.Errorf("invalid riskLevel %q", e.RiskLevel)
	}
	return nil
}

// Extractor turns question/answer pairs into structured clinical data and a
// risk level.
type Extractor interface {
	Extract(ctx context.Context, responses []Response) (*Extraction, error)
}

// LLMExtractor implements Extractor on a text model that answers in JSON.
type LLMExtractor struct {
	gen    llm.TextGenerator
	logger zerolog.Logger
}

func NewLLMExtractor(gen llm.TextGenerator, logger zerolog.Logger) *LLMExtractor {
	return &LLMExtractor{gen: gen, logger: logger.With().Str("agent", "extractor").Logger()}
}

func buildExtractorPrompt(responses []Response) (string, error) {
	payload, err := json.MarshalIndent(responses, "", "  ")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := extractorTmpl.Execute(&buf, struct{ Responses string }{string(payload)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (x *LLMExtractor) Extract(ctx context.Context, responses []Response) (*Extraction, error) {
	if len(responses) == 0 {
		return nil, apperr.Validation("at least one answer is required")
	}
	prompt, err := buildExtractorPrompt(responses)
	if err != nil {
		return nil, fmt.Errorf("build extractor prompt: %w", err)
	}

	resp, err := x.gen.GenerateContent(ctx, prompt)
	if err != nil {
		x.logger.Error().Err(err).Int("responses", len(responses)).Msg("extraction failed")
		return nil, apperr.Collaborator(err, "extraction failed")
	}
	x.logger.Info().
		Str("model", resp.Model).
		Dur("latency", resp.Latency).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("extraction completed")

	var out Extraction
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp.Content)), &out); err != nil {
		return nil, apperr.Collaborator(err, "extraction returned malformed JSON")
	}
	if err := out.Validate(); err != nil {
		return nil, apperr.Collaborator(err, "extraction returned an invalid result")
	}
	if out.StructuredData == nil {
		out.StructuredData = schedule.StructuredData{}
	}
	return &out, nil
}
