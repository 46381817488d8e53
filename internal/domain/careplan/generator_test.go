package careplan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/llm"
)

type fakeTextGenerator struct {
	content string
	err     error
	prompt  string
}

func (f *fakeTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	f.prompt = prompt
	if f.err != nil {
		return llm.ContentResponse{}, f.err
	}
	return llm.ContentResponse{Content: f.content, Model: "test-model"}, nil
}

const validPlanJSON = `{
  "summary": "Check your blood pressure every morning.",
  "durationDays": 14,
  "dailyTasks": [
    {"type": "vital_check", "label": "Blood pressure reading", "frequency": "morning", "expectedAnswerType": "text"},
    {"type": "medication", "label": "Did you take Amlodipine?", "frequency": "daily", "expectedAnswerType": "boolean"}
  ]
}`

func TestBuildPlannerPrompt(t *testing.T) {
	prompt, err := buildPlannerPrompt(PlanRequest{
		DoctorInstructions: "BP check every morning for 2 weeks",
		PatientContext:     "Name: Amina\nAge: 56",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, `Doctor's Instructions: "BP check every morning for 2 weeks"`) {
		t.Error("prompt is missing the instructions")
	}
	if !strings.Contains(prompt, "Patient Context: \"Name: Amina\nAge: 56\"") {
		t.Error("prompt is missing the patient context")
	}

	prompt, _ = buildPlannerPrompt(PlanRequest{DoctorInstructions: "x"})
	if strings.Contains(prompt, "Patient Context") {
		t.Error("patient context line should be omitted when empty")
	}
}

func TestLLMPlanGenerator_Success(t *testing.T) {
	fake := &fakeTextGenerator{content: "```json\n" + validPlanJSON + "\n```"}
	g := NewLLMPlanGenerator(fake, zerolog.Nop())

	sched, err := g.GeneratePlan(context.Background(), PlanRequest{DoctorInstructions: "BP check"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.DurationDays != 14 || len(sched.DailyTasks) != 2 {
		t.Errorf("unexpected schedule %+v", sched)
	}
	if sched.DailyTasks[1].Label != "Did you take Amlodipine?" {
		t.Errorf("task order not preserved: %+v", sched.DailyTasks)
	}
}

func TestLLMPlanGenerator_Failures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeTextGenerator
	}{
		{"transport error", &fakeTextGenerator{err: errors.New("503 unavailable")}},
		{"not json", &fakeTextGenerator{content: "I cannot help with that."}},
		{"empty tasks", &fakeTextGenerator{content: `{"summary":"s","durationDays":3,"dailyTasks":[]}`}},
		{"snake case", &fakeTextGenerator{content: `{"summary":"s","duration_days":3,"daily_tasks":[]}`}},
		{"bad task type", &fakeTextGenerator{content: `{"summary":"s","durationDays":3,"dailyTasks":[{"type":"exercise","label":"walk","frequency":"daily"}]}`}},
		{"fractional duration", &fakeTextGenerator{content: `{"summary":"s","durationDays":7.0,"dailyTasks":[{"type":"question","label":"Any pain?","frequency":"daily"}]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewLLMPlanGenerator(tt.fake, zerolog.Nop())
			sched, err := g.GeneratePlan(context.Background(), PlanRequest{DoctorInstructions: "BP check"})
			if sched != nil {
				t.Errorf("expected no schedule, got %+v", sched)
			}
			if !errors.Is(err, apperr.ErrCollaborator) {
				t.Errorf("expected collaborator error, got %v", err)
			}
		})
	}
}

func TestLLMPlanGenerator_RequiresInstructions(t *testing.T) {
	fake := &fakeTextGenerator{content: validPlanJSON}
	g := NewLLMPlanGenerator(fake, zerolog.Nop())
	if _, err := g.GeneratePlan(context.Background(), PlanRequest{DoctorInstructions: " "}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fake.prompt != "" {
		t.Error("model must not be called without instructions")
	}
}
