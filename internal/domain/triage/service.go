package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/domain/dailylog"
	"github.com/rpms/rpms/internal/domain/identity"
	"github.com/rpms/rpms/internal/domain/schedule"
	"github.com/rpms/rpms/internal/platform/auth"
)

// MaxLimit caps the number of logs a board considers.
const MaxLimit = 100

const summaryEntries = 3

type PendingLogSource interface {
	RecentPending(ctx context.Context, limit int) ([]*dailylog.DailyLog, error)
}

type PlanSource interface {
	PlansByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*careplan.CarePlan, error)
}

type PatientSource interface {
	UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*identity.User, error)
}

// Entry is one row of the triage board.
type Entry struct {
	Log     dailylog.View      `json:"log"`
	Plan    *careplan.CarePlan `json:"care_plan"`
	Patient *identity.User     `json:"patient"`
	Summary string             `json:"summary"`
}

type Service struct {
	logs         PendingLogSource
	plans        PlanSource
	patients     PatientSource
	defaultLimit int
	logger       zerolog.Logger
}

func NewService(logs PendingLogSource, plans PlanSource, patients PatientSource, defaultLimit int, logger zerolog.Logger) *Service {
	return &Service{
		logs:         logs,
		plans:        plans,
		patients:     patients,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Board returns the most recent PENDING logs ordered by clinical priority.
// A non-positive limit selects the configured default.
func (s *Service) Board(ctx context.Context, caller auth.Caller, limit int) ([]Entry, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	logs, err := s.logs.RecentPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load pending logs: %w", err)
	}
	Sort(logs)

	planIDs := make([]uuid.UUID, 0, len(logs))
	for _, l := range logs {
		planIDs = append(planIDs, l.CarePlanID)
	}
	plans, err := s.plans.PlansByID(ctx, planIDs)
	if err != nil {
		return nil, fmt.Errorf("load care plans: %w", err)
	}
	patientIDs := make([]uuid.UUID, 0, len(plans))
	for _, cp := range plans {
		patientIDs = append(patientIDs, cp.PatientID)
	}
	patients, err := s.patients.UsersByID(ctx, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	entries := make([]Entry, 0, len(logs))
	for _, l := range logs {
		cp, ok := plans[l.CarePlanID]
		if !ok {
			s.logger.Warn().Str("daily_log_id", l.ID.String()).Msg("triage: log references a missing care plan")
			continue
		}
		patient, ok := patients[cp.PatientID]
		if !ok {
			s.logger.Warn().Str("care_plan_id", cp.ID.String()).Msg("triage: care plan references a missing patient")
			continue
		}
		entries = append(entries, Entry{
			Log:     dailylog.NewView(l),
			Plan:    cp,
			Patient: patient,
			Summary: schedule.Summarize(l.StructuredData, summaryEntries),
		})
	}
	return entries, nil
}
