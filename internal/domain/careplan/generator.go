package careplan

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/schedule"
	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/llm"
)

//go:embed planner_prompt.md
var plannerPrompt string

var plannerTmpl = template.Must(template.New("planner").Parse(plannerPrompt))

// PlanRequest is the input to plan generation.
type PlanRequest struct {
	DoctorInstructions string
	PatientContext     string
}

// PlanGenerator turns a doctor's free-text instructions into a validated
// schedule. Any failure must be reported as an error; callers never fall
// back to a default schedule.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*schedule.Schedule, error)
}

// LLMPlanGenerator implements PlanGenerator on a text model that answers
// with a JSON schedule.
type LLMPlanGenerator struct {
	gen    llm.TextGenerator
	logger zerolog.Logger
}

func NewLLMPlanGenerator(gen llm.TextGenerator, logger zerolog.Logger) *LLMPlanGenerator {
	return &LLMPlanGenerator{gen: gen, logger: logger.With().Str("agent", "planner").Logger()}
}

func buildPlannerPrompt(req PlanRequest) (string, error) {
	var buf bytes.Buffer
	if err := plannerTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (g *LLMPlanGenerator) GeneratePlan(ctx context.Context, req PlanRequest) (*schedule.Schedule, error) {
	if strings.TrimSpace(req.DoctorInstructions) == "" {
		return nil, apperr.Validation("doctor instructions are required")
	}
	prompt, err := buildPlannerPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("build planner prompt: %w", err)
	}

	resp, err := g.gen.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.Error().Err(err).Msg("plan generation failed")
		return nil, apperr.Collaborator(err, "plan generation failed")
	}
	g.logger.Info().
		Str("model", resp.Model).
		Dur("latency", resp.Latency).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("plan generated")

	sched, err := schedule.Decode(llm.ExtractJSON(resp.Content))
	if err != nil {
		return nil, apperr.Collaborator(err, "plan generation returned an invalid schedule")
	}
	return sched, nil
}
