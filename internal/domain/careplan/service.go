package careplan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/identity"
	"github.com/rpms/rpms/internal/domain/schedule"
	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
	"github.com/rpms/rpms/internal/platform/db"
)

// PatientLookup resolves patient records for plan creation.
type PatientLookup interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	plans     CarePlanRepository
	patients  PatientLookup
	generator PlanGenerator
	tx        db.TxRunner
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(plans CarePlanRepository, patients PatientLookup, generator PlanGenerator, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		plans:     plans,
		patients:  patients,
		generator: generator,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePlan generates a schedule from the doctor's instructions and stores
// it as a new ACTIVE plan. Nothing is written unless generation produced a
// valid schedule.
func (s *Service) CreatePlan(ctx context.Context, caller auth.Caller, patientID uuid.UUID, instructions string) (*CarePlan, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	instructions = strings.TrimSpace(instructions)
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if instructions == "" {
		return nil, apperr.Validation("instructions are required")
	}

	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	sched, err := s.generator.GeneratePlan(ctx, PlanRequest{
		DoctorInstructions: instructions,
		PatientContext:     identity.PatientContext(patient, s.now()),
	})
	if err != nil {
		return nil, err
	}
	if err := sched.Validate(); err != nil {
		return nil, apperr.Collaborator(err, "plan generation returned an invalid schedule")
	}
	encoded, err := schedule.Encode(sched)
	if err != nil {
		return nil, err
	}

	cp := &CarePlan{
		PatientID:            patientID,
		DoctorID:             caller.ID,
		OriginalInstructions: instructions,
		Schedule:             encoded,
		Status:               StatusActive,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		prev, err := s.plans.LatestActive(ctx, patientID)
		if err != nil {
			return fmt.Errorf("check active plan: %w", err)
		}
		if prev != nil {
			s.logger.Warn().
				Str("patient_id", patientID.String()).
				Str("active_plan_id", prev.ID.String()).
				Msg("patient already has an active care plan; the new plan supersedes it")
		}
		if err := s.plans.Create(ctx, cp); err != nil {
			return fmt.Errorf("create care plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("care_plan_id", cp.ID.String()).
		Str("patient_id", patientID.String()).
		Str("doctor_id", caller.ID.String()).
		Int("tasks", len(sched.DailyTasks)).
		Int("duration_days", sched.DurationDays).
		Msg("care plan created")
	return cp, nil
}

// ClosePlan moves a plan to COMPLETED. Closing an already completed plan is
// a no-op.
func (s *Service) ClosePlan(ctx context.Context, caller auth.Caller, planID uuid.UUID) (*CarePlan, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	cp, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if cp.Status == StatusCompleted {
		return cp, nil
	}
	if err := s.plans.UpdateStatus(ctx, planID, StatusCompleted); err != nil {
		return nil, fmt.Errorf("close care plan: %w", err)
	}
	cp.Status = StatusCompleted

	s.logger.Info().
		Str("care_plan_id", planID.String()).
		Str("doctor_id", caller.ID.String()).
		Msg("care plan closed")
	return cp, nil
}

// UpdateStatus accepts only COMPLETED as a target; plans are never reopened.
func (s *Service) UpdateStatus(ctx context.Context, caller auth.Caller, planID uuid.UUID, status Status) (*CarePlan, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown care plan status %q", status)
	}
	if status != StatusCompleted {
		return nil, apperr.Validation("status can only be changed to %s, got %q", StatusCompleted, status)
	}
	return s.ClosePlan(ctx, caller, planID)
}

// ActivePlanFor returns the most recently created ACTIVE plan of the
// patient, or nil when there is none.
func (s *Service) ActivePlanFor(ctx context.Context, caller auth.Caller, patientID uuid.UUID) (*CarePlan, error) {
	if err := caller.RequirePatientAccess(patientID); err != nil {
		return nil, err
	}
	return s.plans.LatestActive(ctx, patientID)
}

// GetPlan returns a plan visible to the caller: any plan for doctors, only
// their own for patients.
func (s *Service) GetPlan(ctx context.Context, caller auth.Caller, planID uuid.UUID) (*CarePlan, error) {
	if caller.ID == uuid.Nil {
		return nil, apperr.Authorization("unauthenticated caller")
	}
	cp, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := caller.RequirePatientAccess(cp.PatientID); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *Service) ListByPatient(ctx context.Context, caller auth.Caller, patientID uuid.UUID) ([]*CarePlan, error) {
	if err := caller.RequirePatientAccess(patientID); err != nil {
		return nil, err
	}
	return s.plans.ListByPatient(ctx, patientID)
}

// PlansByID loads plans in bulk for read models. Authorization is the
// caller's responsibility.
func (s *Service) PlansByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*CarePlan, error) {
	return s.plans.GetByIDs(ctx, ids)
}

// LatestActiveByPatients loads each patient's active plan for read models.
func (s *Service) LatestActiveByPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*CarePlan, error) {
	return s.plans.LatestActiveByPatients(ctx, patientIDs)
}
