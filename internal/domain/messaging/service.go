package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
)

// PlanReader loads a care plan on behalf of a caller, enforcing ownership.
type PlanReader interface {
	GetPlan(ctx context.Context, caller auth.Caller, planID uuid.UUID) (*careplan.CarePlan, error)
}

type Service struct {
	messages MessageRepository
	plans    PlanReader
	logger   zerolog.Logger
}

func NewService(messages MessageRepository, plans PlanReader, logger zerolog.Logger) *Service {
	return &Service{messages: messages, plans: plans, logger: logger}
}

// SendMessage stores a doctor's message on a plan.
func (s *Service) SendMessage(ctx context.Context, caller auth.Caller, planID uuid.UUID, content string) (*Message, error) {
	if err := caller.Require(auth.RoleDoctor); err != nil {
		return nil, err
	}
	if planID == uuid.Nil {
		return nil, apperr.Validation("care_plan_id is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if _, err := s.plans.GetPlan(ctx, caller, planID); err != nil {
		return nil, err
	}

	m := &Message{CarePlanID: planID, SenderID: caller.ID, Content: content}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.logger.Info().
		Str("message_id", m.ID.String()).
		Str("care_plan_id", planID.String()).
		Str("sender_id", caller.ID.String()).
		Msg("message sent")
	return m, nil
}

// ListByPlan returns a plan's messages oldest first. Patients may read only
// their own plans.
func (s *Service) ListByPlan(ctx context.Context, caller auth.Caller, planID uuid.UUID) ([]*Message, error) {
	if _, err := s.plans.GetPlan(ctx, caller, planID); err != nil {
		return nil, err
	}
	return s.messages.ListByPlan(ctx, planID)
}

// MessagesByPlans loads messages of several plans for read models.
func (s *Service) MessagesByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*Message, error) {
	return s.messages.ListByPlans(ctx, planIDs)
}
