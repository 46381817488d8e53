package dailylog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/domain/schedule"
	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
	"github.com/rpms/rpms/internal/platform/db"
)

// PlanReader loads a care plan on behalf of a caller, enforcing ownership.
type PlanReader interface {
	GetPlan(ctx context.Context, caller auth.Caller, planID uuid.UUID) (*careplan.CarePlan, error)
}

// Submission is the outcome of SubmitLog. Sentiment and the urgency flag
// come from extraction and are not stored.
type Submission struct {
	Log                   View   `json:"log"`
	Sentiment             string `json:"sentiment,omitempty"`
	UrgentAttentionNeeded bool   `json:"urgent_attention_needed"`
}

type Service struct {
	logs      DailyLogRepository
	plans     PlanReader
	extractor Extractor
	tx        db.TxRunner
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(logs DailyLogRepository, plans PlanReader, extractor Extractor, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		logs:      logs,
		plans:     plans,
		extractor: extractor,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
}

// ResolveAnswers maps answers onto the schedule's questions in task order.
// Answers that are blank, carry no index or point outside the task list are
// dropped. When an index is answered twice the last answer wins.
func ResolveAnswers(sched *schedule.Schedule, answers []Answer) []Response {
	byIndex := make(map[int]string, len(answers))
	for _, a := range answers {
		text := strings.TrimSpace(a.Answer)
		if text == "" {
			continue
		}
		if a.QuestionIndex == nil {
			continue
		}
		if _, ok := sched.Question(*a.QuestionIndex); !ok {
			continue
		}
		byIndex[*a.QuestionIndex] = text
	}

	indices := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]Response, len(indices))
	for n, i := range indices {
		q, _ := sched.Question(i)
		out[n] = Response{Question: q, Answer: byIndex[i]}
	}
	return out
}

// SubmitLog records one patient submission against an ACTIVE plan. The
// answers are extracted in a single call and at most one PENDING log is
// written. Nothing is stored when extraction fails.
func (s *Service) SubmitLog(ctx context.Context, caller auth.Caller, planID uuid.UUID, note string, answers []Answer) (*Submission, error) {
	if err := caller.Require(auth.RolePatient); err != nil {
		return nil, err
	}
	for i, a := range answers {
		if a.QuestionIndex == nil {
			return nil, apperr.Validation("answers[%d]: question_index is required", i)
		}
	}
	cp, err := s.plans.GetPlan(ctx, caller, planID)
	if err != nil {
		return nil, err
	}
	if !cp.IsActive() {
		return nil, apperr.Validation("care plan %s is %s and no longer accepts logs", planID, cp.Status)
	}
	sched, err := schedule.Decode(cp.Schedule)
	if err != nil {
		return nil, fmt.Errorf("load schedule for care plan %s: %w", planID, err)
	}

	responses := ResolveAnswers(sched, answers)
	if len(responses) == 0 {
		return nil, apperr.Validation("at least one answer is required")
	}

	ext, err := s.extractor.Extract(ctx, responses)
	if err != nil {
		return nil, err
	}
	data, err := schedule.EncodeData(ext.StructuredData)
	if err != nil {
		return nil, apperr.Collaborator(err, "extraction returned unencodable data")
	}

	l := &DailyLog{
		CarePlanID:      planID,
		PatientRawInput: RenderRawInput(responses),
		StructuredData:  data,
		RiskLevel:       ext.RiskLevel,
		Status:          StatusPending,
	}
	if note = strings.TrimSpace(note); note != "" {
		l.PatientNote = &note
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.logs.Create(ctx, l); err != nil {
			return fmt.Errorf("create daily log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("daily_log_id", l.ID.String()).
		Str("care_plan_id", planID.String()).
		Str("risk_level", string(l.RiskLevel)).
		Str("sentiment", ext.Sentiment).
		Bool("urgent", ext.UrgentAttentionNeeded).
		Int("answers", len(responses)).
		Msg("daily log submitted")
	return &Submission{
		Log:                   NewView(l),
		Sentiment:             ext.Sentiment,
		UrgentAttentionNeeded: ext.UrgentAttentionNeeded,
	}, nil
}

// ListByPlan pages through a plan's logs, newest first.
func (s *Service) ListByPlan(ctx context.Context, caller auth.Caller, planID uuid.UUID, limit, offset int) ([]*DailyLog, int, error) {
	if _, err := s.plans.GetPlan(ctx, caller, planID); err != nil {
		return nil, 0, err
	}
	return s.logs.ListByPlan(ctx, planID, limit, offset)
}

// ListSince returns the plan's logs created at or after since, newest first.
func (s *Service) ListSince(ctx context.Context, caller auth.Caller, planID uuid.UUID, since time.Time) ([]*DailyLog, error) {
	if _, err := s.plans.GetPlan(ctx, caller, planID); err != nil {
		return nil, err
	}
	return s.logs.ListByPlanSince(ctx, planID, since)
}

// RecentPending returns the newest PENDING logs across all plans for read
// models. Authorization is the caller's responsibility.
func (s *Service) RecentPending(ctx context.Context, limit int) ([]*DailyLog, error) {
	return s.logs.RecentPending(ctx, limit)
}

// LogsByPlans loads the logs of several plans for read models.
func (s *Service) LogsByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*DailyLog, error) {
	return s.logs.ListByPlans(ctx, planIDs)
}
