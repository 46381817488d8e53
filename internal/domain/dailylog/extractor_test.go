package dailylog

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

var sampleResponses = []Response{
	{Question: "What is your BP?", Answer: "160/100"},
	{Question: "Chest pain?", Answer: "ndio, tangu jana"},
}

func TestBuildExtractorPrompt(t *testing.T) {
	prompt, err := buildExtractorPrompt(sampleResponses)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"question": "What is your BP?"`, `"answer": "ndio, tangu jana"`, "urgentAttentionNeeded"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLLMExtractor_Success(t *testing.T) {
	gen := &fakeTextGenerator{content: "```json\n" + `{
		"structuredData": {"bp": "160/100", "chest_pain": true},
		"riskLevel": "HIGH",
		"sentiment": "anxious",
		"urgentAttentionNeeded": true
	}` + "\n```"}
	ext, err := NewLLMExtractor(gen, zerolog.Nop()).Extract(context.Background(), sampleResponses)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.RiskLevel != RiskHigh || !ext.UrgentAttentionNeeded || ext.Sentiment != "anxious" {
		t.Errorf("unexpected extraction %+v", ext)
	}
	if ext.StructuredData["bp"] != "160/100" {
		t.Errorf("unexpected structured data %v", ext.StructuredData)
	}
}

func TestLLMExtractor_MissingDataBecomesEmpty(t *testing.T) {
	gen := &fakeTextGenerator{content: `{"riskLevel": "LOW", "urgentAttentionNeeded": false}`}
	ext, err := NewLLMExtractor(gen, zerolog.Nop()).Extract(context.Background(), sampleResponses)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.StructuredData == nil || len(ext.StructuredData) != 0 {
		t.Errorf("expected empty structured data, got %v", ext.StructuredData)
	}
}

func TestLLMExtractor_Failures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeTextGenerator
	}{
		{"generator error", &fakeTextGenerator{err: errors.New("503 unavailable")}},
		{"not json", &fakeTextGenerator{content: "I am unable to help with that."}},
		{"unknown risk", &fakeTextGenerator{content: `{"structuredData": {}, "riskLevel": "CRITICAL"}`}},
		{"missing risk", &fakeTextGenerator{content: `{"structuredData": {"bp": "120/80"}}`}},
		{"lowercase risk", &fakeTextGenerator{content: `{"structuredData": {}, "riskLevel": "low"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMExtractor(tt.gen, zerolog.Nop()).Extract(context.Background(), sampleResponses)
			if !errors.Is(err, apperr.ErrCollaborator) {
				t.Errorf("expected collaborator error, got %v", err)
			}
		})
	}
}

func TestLLMExtractor_RejectsEmptyInput(t *testing.T) {
	gen := &fakeTextGenerator{}
	_, err := NewLLMExtractor(gen, zerolog.Nop()).Extract(context.Background(), nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gen.prompt != "" {
		t.Error("generator must not be called without answers")
	}
}
