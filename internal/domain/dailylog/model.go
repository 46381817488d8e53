package dailylog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/domain/schedule"
)

// RiskLevel is the extractor's assessment of a submission.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Status is the review state of a log.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusReviewed Status = "REVIEWED"
)

// DailyLog maps to the daily_log table. Logs are append-only.
type DailyLog struct {
	ID              uuid.UUID `db:"id" json:"id"`
	CarePlanID      uuid.UUID `db:"care_plan_id" json:"care_plan_id"`
	PatientRawInput string    `db:"patient_raw_input" json:"patient_raw_input"`
	PatientNote     *string   `db:"patient_note" json:"patient_note,omitempty"`
	StructuredData  string    `db:"structured_data" json:"-"`
	RiskLevel       RiskLevel `db:"risk_level" json:"risk_level"`
	Status          Status    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// View is the API representation of a log with structured data decoded.
// Unparseable stored data is shown as an empty object.
type View struct {
	*DailyLog
	StructuredData schedule.StructuredData `json:"structured_data"`
}

func NewView(l *DailyLog) View {
	return View{DailyLog: l, StructuredData: schedule.DecodeDataLenient(l.StructuredData)}
}

func NewViews(logs []*DailyLog) []View {
	out := make([]View, len(logs))
	for i, l := range logs {
		out[i] = NewView(l)
	}
	return out
}

// Answer is one submitted answer, addressed by its task position in the
// plan's schedule. QuestionIndex is required; nil means the client sent no
// index.
type Answer struct {
	QuestionIndex *int   `json:"question_index"`
	Answer        string `json:"answer"`
}

// Response is a resolved question/answer pair handed to extraction.
type Response struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RenderRawInput formats pairs as "Q: ...\nA: ..." blocks separated by a
// blank line, in the order given.
func RenderRawInput(pairs []Response) string {
	blocks := make([]string, len(pairs))
	for i, p := range pairs {
		blocks[i] = "Q: " + p.Question + "\nA: " + p.Answer
	}
	return strings.Join(blocks, "\n\n")
}
