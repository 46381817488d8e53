package messaging

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpms/rpms/internal/platform/db"
)

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const msgCols = `id, care_plan_id, sender_id, content, created_at`

func (r *messageRepoPG) scanAll(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()
	var items []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.CarePlanID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO message (id, care_plan_id, sender_id, content)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		m.ID, m.CarePlanID, m.SenderID, m.Content).Scan(&m.CreatedAt)
}

func (r *messageRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+msgCols+` FROM message
		WHERE care_plan_id = $1 ORDER BY created_at, id`, planID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *messageRepoPG) ListByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*Message, error) {
	out := make(map[uuid.UUID][]*Message, len(planIDs))
	if len(planIDs) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+msgCols+` FROM message
		WHERE care_plan_id = ANY($1) ORDER BY created_at, id`, planIDs)
	if err != nil {
		return nil, err
	}
	items, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range items {
		out[m.CarePlanID] = append(out[m.CarePlanID], m)
	}
	return out, nil
}
