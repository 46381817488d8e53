package careplan

import (
	"context"

	"github.com/google/uuid"
)

type CarePlanRepository interface {
	Create(ctx context.Context, cp *CarePlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*CarePlan, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*CarePlan, error)
	// UpdateStatus returns NotFound when no plan has the id.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// ListByPatient returns every plan of the patient, newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*CarePlan, error)
	// LatestActive returns the most recently created ACTIVE plan, or nil.
	LatestActive(ctx context.Context, patientID uuid.UUID) (*CarePlan, error)
	LatestActiveByPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*CarePlan, error)
}
