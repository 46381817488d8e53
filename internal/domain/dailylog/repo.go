package dailylog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DailyLogRepository persists daily logs. Every list is newest first.
type DailyLogRepository interface {
	Create(ctx context.Context, l *DailyLog) error
	ListByPlan(ctx context.Context, planID uuid.UUID, limit, offset int) ([]*DailyLog, int, error)
	ListByPlanSince(ctx context.Context, planID uuid.UUID, since time.Time) ([]*DailyLog, error)
	ListByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*DailyLog, error)
	RecentPending(ctx context.Context, limit int) ([]*DailyLog, error)
}
