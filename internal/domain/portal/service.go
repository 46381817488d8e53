package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/domain/dailylog"
	"github.com/rpms/rpms/internal/domain/identity"
	"github.com/rpms/rpms/internal/domain/messaging"
	"github.com/rpms/rpms/internal/platform/auth"
)

type Plans interface {
	ActivePlanFor(ctx context.Context, caller auth.Caller, patientID uuid.UUID) (*careplan.CarePlan, error)
	ListByPatient(ctx context.Context, caller auth.Caller, patientID uuid.UUID) ([]*careplan.CarePlan, error)
	LatestActiveByPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*careplan.CarePlan, error)
}

type Logs interface {
	ListSince(ctx context.Context, caller auth.Caller, planID uuid.UUID, since time.Time) ([]*dailylog.DailyLog, error)
	LogsByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*dailylog.DailyLog, error)
}

type Messages interface {
	ListByPlan(ctx context.Context, caller auth.Caller, planID uuid.UUID) ([]*messaging.Message, error)
	MessagesByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*messaging.Message, error)
}

type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.User, error)
	ListPatients(ctx context.Context, limit, offset int) ([]*identity.User, int, error)
}

// Service assembles read models across care plans, logs and messages.
type Service struct {
	plans    Plans
	logs     Logs
	messages Messages
	patients Patients
	loc      *time.Location
	now      func() time.Time
}

func NewService(plans Plans, logs Logs, messages Messages, patients Patients, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{plans: plans, logs: logs, messages: messages, patients: patients, loc: loc, now: time.Now}
}

func (s *Service) startOfDay() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// PatientDashboard returns the calling patient's active plan, the logs
// submitted against it since midnight and its messages.
func (s *Service) PatientDashboard(ctx context.Context, caller auth.Caller) (*Dashboard, error) {
	if err := caller.Require(auth.RolePatient); err != nil {
		return nil, err
	}
	d := &Dashboard{TodayLogs: []dailylog.View{}, Messages: []*messaging.Message{}}

	cp, err := s.plans.ActivePlanFor(ctx, caller, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("load active plan: %w", err)
	}
	if cp == nil {
		return d, nil
	}
	d.ActivePlan = planView(cp)

	logs, err := s.logs.ListSince(ctx, caller, cp.ID, s.startOfDay())
	if err != nil {
		return nil, fmt.Errorf("load today's logs: %w", err)
	}
	d.TodayLogs = dailylog.NewViews(logs)

	msgs, err := s.messages.ListByPlan(ctx, caller, cp.ID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = nonNilMessages(msgs)
	return d, nil
}

// DoctorPatientView returns every plan of a patient, newest first, with
// logs newest first and messages oldest first.
func (s *Service) DoctorPatientView(ctx context.Context, caller auth.Caller, patientID uuid.UUID) (*Overview, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	plans, err := s.plans.ListByPatient(ctx, caller, patientID)
	if err != nil {
		return nil, fmt.Errorf("load care plans: %w", err)
	}

	ids := make([]uuid.UUID, len(plans))
	for i, cp := range plans {
		ids[i] = cp.ID
	}
	logs, err := s.logs.LogsByPlans(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	msgs, err := s.messages.MessagesByPlans(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	ov := &Overview{Patient: patient, Plans: make([]PlanHistory, 0, len(plans))}
	for _, cp := range plans {
		if ov.ActivePlan == nil && cp.IsActive() {
			ov.ActivePlan = planView(cp)
		}
		ov.Plans = append(ov.Plans, PlanHistory{
			Plan:     careplan.NewView(cp),
			Logs:     dailylog.NewViews(logs[cp.ID]),
			Messages: nonNilMessages(msgs[cp.ID]),
		})
	}
	return ov, nil
}

// PatientRoster pages through all patients with their latest ACTIVE plan.
func (s *Service) PatientRoster(ctx context.Context, caller auth.Caller, limit, offset int) ([]RosterEntry, int, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, 0, err
	}
	patients, total, err := s.patients.ListPatients(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	ids := make([]uuid.UUID, len(patients))
	for i, p := range patients {
		ids[i] = p.ID
	}
	active, err := s.plans.LatestActiveByPatients(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load active plans: %w", err)
	}

	entries := make([]RosterEntry, len(patients))
	for i, p := range patients {
		entries[i] = RosterEntry{Patient: p, ActivePlan: active[p.ID]}
	}
	return entries, total, nil
}
