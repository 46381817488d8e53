package schedule

import (
	"strings"

	"github.com/rpms/rpms/internal/platform/apperr"
)

// TaskType is the kind of daily task a patient is asked to perform.
type TaskType string

const (
	TaskVitalCheck TaskType = "vital_check"
	TaskQuestion   TaskType = "question"
	TaskMedication TaskType = "medication"
)

// AnswerType is the expected format of a patient's answer to a task.
type AnswerType string

const (
	AnswerNumber  AnswerType = "number"
	AnswerBoolean AnswerType = "boolean"
	AnswerText    AnswerType = "text"
)

var validTaskTypes = map[TaskType]bool{
	TaskVitalCheck: true, TaskQuestion: true, TaskMedication: true,
}

var validAnswerTypes = map[AnswerType]bool{
	AnswerNumber: true, AnswerBoolean: true, AnswerText: true,
}

// Task is one entry of a plan's daily task list. Its position in
// Schedule.DailyTasks is the question index patients answer against.
type Task struct {
	Type               TaskType   `json:"type"`
	Label              string     `json:"label"`
	Frequency          string     `json:"frequency"`
	ExpectedAnswerType AnswerType `json:"expectedAnswerType,omitempty"`
}

// Schedule is the structured daily task list attached to a care plan.
type Schedule struct {
	Summary      string `json:"summary"`
	DurationDays int    `json:"durationDays"`
	DailyTasks   []Task `json:"dailyTasks"`
}

// Validate reports a validation error when the schedule cannot be attached
// to a care plan.
func (s *Schedule) Validate() error {
	if s == nil {
		return apperr.Validation("schedule is required")
	}
	if s.DurationDays < 1 {
		return apperr.Validation("durationDays must be at least 1, got %d", s.DurationDays)
	}
	if len(s.DailyTasks) == 0 {
		return apperr.Validation("dailyTasks must not be empty")
	}
	for i, t := range s.DailyTasks {
		if !validTaskTypes[t.Type] {
			return apperr.Validation("dailyTasks[%d]: invalid type %q", i, t.Type)
		}
		if strings.TrimSpace(t.Label) == "" {
			return apperr.Validation("dailyTasks[%d]: label is required", i)
		}
		if strings.TrimSpace(t.Frequency) == "" {
			return apperr.Validation("dailyTasks[%d]: frequency is required", i)
		}
		if t.ExpectedAnswerType != "" && !validAnswerTypes[t.ExpectedAnswerType] {
			return apperr.Validation("dailyTasks[%d]: invalid expectedAnswerType %q", i, t.ExpectedAnswerType)
		}
	}
	return nil
}

// Question returns the label of the task at index, or false when the index
// is outside the task list.
func (s *Schedule) Question(index int) (string, bool) {
	if s == nil || index < 0 || index >= len(s.DailyTasks) {
		return "", false
	}
	return s.DailyTasks[index].Label, true
}
