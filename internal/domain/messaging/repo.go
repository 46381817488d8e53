package messaging

import (
	"context"

	"github.com/google/uuid"
)

// MessageRepository persists messages. Lists are oldest first.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Message, error)
	ListByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*Message, error)
}
