package dailylog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpms/rpms/internal/platform/db"
)

type dailyLogRepoPG struct{ pool *pgxpool.Pool }

func NewDailyLogRepoPG(pool *pgxpool.Pool) DailyLogRepository {
	return &dailyLogRepoPG{pool: pool}
}

func (r *dailyLogRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const logCols = `id, care_plan_id, patient_raw_input, patient_note, structured_data, risk_level, status, created_at`

func (r *dailyLogRepoPG) scanLog(row pgx.Row) (*DailyLog, error) {
	var l DailyLog
	err := row.Scan(&l.ID, &l.CarePlanID, &l.PatientRawInput, &l.PatientNote,
		&l.StructuredData, &l.RiskLevel, &l.Status, &l.CreatedAt)
	return &l, err
}

func (r *dailyLogRepoPG) scanAll(rows pgx.Rows) ([]*DailyLog, error) {
	defer rows.Close()
	var items []*DailyLog
	for rows.Next() {
		l, err := r.scanLog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *dailyLogRepoPG) Create(ctx context.Context, l *DailyLog) error {
	l.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO daily_log (id, care_plan_id, patient_raw_input, patient_note, structured_data, risk_level, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		l.ID, l.CarePlanID, l.PatientRawInput, l.PatientNote, l.StructuredData, l.RiskLevel, l.Status).Scan(&l.CreatedAt)
}

func (r *dailyLogRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID, limit, offset int) ([]*DailyLog, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM daily_log WHERE care_plan_id = $1`, planID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+logCols+` FROM daily_log
		WHERE care_plan_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, planID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.scanAll(rows)
	return items, total, err
}

func (r *dailyLogRepoPG) ListByPlanSince(ctx context.Context, planID uuid.UUID, since time.Time) ([]*DailyLog, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+logCols+` FROM daily_log
		WHERE care_plan_id = $1 AND created_at >= $2 ORDER BY created_at DESC, id`, planID, since)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *dailyLogRepoPG) ListByPlans(ctx context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*DailyLog, error) {
	out := make(map[uuid.UUID][]*DailyLog, len(planIDs))
	if len(planIDs) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+logCols+` FROM daily_log
		WHERE care_plan_id = ANY($1) ORDER BY created_at DESC, id`, planIDs)
	if err != nil {
		return nil, err
	}
	items, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, l := range items {
		out[l.CarePlanID] = append(out[l.CarePlanID], l)
	}
	return out, nil
}

func (r *dailyLogRepoPG) RecentPending(ctx context.Context, limit int) ([]*DailyLog, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+logCols+` FROM daily_log
		WHERE status = $1 ORDER BY created_at DESC, id LIMIT $2`, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}
