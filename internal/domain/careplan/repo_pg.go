package careplan

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/db"
)

type carePlanRepoPG struct{ pool *pgxpool.Pool }

func NewCarePlanRepoPG(pool *pgxpool.Pool) CarePlanRepository {
	return &carePlanRepoPG{pool: pool}
}

func (r *carePlanRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const cpCols = `id, patient_id, doctor_id, original_instructions, schedule, status, created_at`

func (r *carePlanRepoPG) scanCP(row pgx.Row) (*CarePlan, error) {
	var cp CarePlan
	err := row.Scan(&cp.ID, &cp.PatientID, &cp.DoctorID, &cp.OriginalInstructions,
		&cp.Schedule, &cp.Status, &cp.CreatedAt)
	return &cp, err
}

func (r *carePlanRepoPG) scanAll(rows pgx.Rows) ([]*CarePlan, error) {
	defer rows.Close()
	var items []*CarePlan
	for rows.Next() {
		cp, err := r.scanCP(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, cp)
	}
	return items, rows.Err()
}

func (r *carePlanRepoPG) Create(ctx context.Context, cp *CarePlan) error {
	cp.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO care_plan (id, patient_id, doctor_id, original_instructions, schedule, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		cp.ID, cp.PatientID, cp.DoctorID, cp.OriginalInstructions, cp.Schedule, cp.Status).Scan(&cp.CreatedAt)
}

func (r *carePlanRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CarePlan, error) {
	cp, err := r.scanCP(r.conn(ctx).QueryRow(ctx, `SELECT `+cpCols+` FROM care_plan WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("care plan %s not found", id)
	}
	return cp, err
}

func (r *carePlanRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*CarePlan, error) {
	out := make(map[uuid.UUID]*CarePlan, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cpCols+` FROM care_plan WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	items, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, cp := range items {
		out[cp.ID] = cp
	}
	return out, nil
}

func (r *carePlanRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE care_plan SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("care plan %s not found", id)
	}
	return nil
}

func (r *carePlanRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*CarePlan, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cpCols+` FROM care_plan
		WHERE patient_id = $1 ORDER BY created_at DESC, id`, patientID)
	if err != nil {
		return nil, err
	}
	return r.scanAll(rows)
}

func (r *carePlanRepoPG) LatestActive(ctx context.Context, patientID uuid.UUID) (*CarePlan, error) {
	cp, err := r.scanCP(r.conn(ctx).QueryRow(ctx, `SELECT `+cpCols+` FROM care_plan
		WHERE patient_id = $1 AND status = $2
		ORDER BY created_at DESC, id LIMIT 1`, patientID, StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cp, err
}

func (r *carePlanRepoPG) LatestActiveByPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*CarePlan, error) {
	out := make(map[uuid.UUID]*CarePlan, len(patientIDs))
	if len(patientIDs) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT DISTINCT ON (patient_id) `+cpCols+` FROM care_plan
		WHERE patient_id = ANY($1) AND status = $2
		ORDER BY patient_id, created_at DESC, id`, patientIDs, StatusActive)
	if err != nil {
		return nil, err
	}
	items, err := r.scanAll(rows)
	if err != nil {
		return nil, err
	}
	for _, cp := range items {
		out[cp.PatientID] = cp
	}
	return out, nil
}
