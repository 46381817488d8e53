package schedule

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rpms/rpms/internal/platform/apperr"
)

func validSchedule() *Schedule {
	return &Schedule{
		Summary:      "Check your blood pressure twice a day this week.",
		DurationDays: 7,
		DailyTasks: []Task{
			{Type: TaskVitalCheck, Label: "What is your blood pressure?", Frequency: "2x daily", ExpectedAnswerType: AnswerText},
			{Type: TaskMedication, Label: "Did you take your amlodipine?", Frequency: "morning", ExpectedAnswerType: AnswerBoolean},
			{Type: TaskQuestion, Label: "Any dizziness?", Frequency: "daily"},
		},
	}
}

func TestValidate_Success(t *testing.T) {
	if err := validSchedule().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schedule)
	}{
		{"zero duration", func(s *Schedule) { s.DurationDays = 0 }},
		{"negative duration", func(s *Schedule) { s.DurationDays = -3 }},
		{"no tasks", func(s *Schedule) { s.DailyTasks = nil }},
		{"empty label", func(s *Schedule) { s.DailyTasks[0].Label = "  " }},
		{"empty frequency", func(s *Schedule) { s.DailyTasks[1].Frequency = "" }},
		{"unknown type", func(s *Schedule) { s.DailyTasks[2].Type = "exercise" }},
		{"unknown answer type", func(s *Schedule) { s.DailyTasks[0].ExpectedAnswerType = "date" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchedule()
			tt.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	var s *Schedule
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for nil schedule")
	}
}

func TestQuestion(t *testing.T) {
	s := validSchedule()
	q, ok := s.Question(1)
	if !ok || q != "Did you take your amlodipine?" {
		t.Errorf("unexpected question %q (ok=%v)", q, ok)
	}
	if _, ok := s.Question(3); ok {
		t.Error("expected out of range index to miss")
	}
	if _, ok := s.Question(-1); ok {
		t.Error("expected negative index to miss")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := validSchedule()
	raw, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got.DailyTasks, s.DailyTasks) {
		t.Errorf("task list changed across round trip:\n got %+v\nwant %+v", got.DailyTasks, s.DailyTasks)
	}
	if got.DurationDays != 7 || got.Summary != s.Summary {
		t.Errorf("unexpected header fields: %+v", got)
	}
}

func TestEncode_RejectsInvalid(t *testing.T) {
	s := validSchedule()
	s.DailyTasks = []Task{}
	if _, err := Encode(s); err == nil {
		t.Fatal("expected encode to reject an empty task list")
	}
}

func TestDecode_RejectsSnakeCase(t *testing.T) {
	raw := `{"summary":"x","duration_days":7,"daily_tasks":[{"type":"question","label":"a","frequency":"daily"}]}`
	_, err := Decode(raw)
	if !errors.Is(err, apperr.ErrDeserialization) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
}

// durationDays is a whole number of days; a float literal such as 7.0 is
// not accepted.
func TestDecode_FractionalDuration(t *testing.T) {
	raw := `{"summary":"x","durationDays":7.0,"dailyTasks":[{"type":"question","label":"a","frequency":"daily"}]}`
	_, err := Decode(raw)
	if !errors.Is(err, apperr.ErrDeserialization) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode("{not json"); err == nil {
		t.Fatal("expected error")
	}
	if s := DecodeLenient("{not json"); s != nil {
		t.Errorf("expected nil schedule from lenient decode, got %+v", s)
	}
}
