package careplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/domain/schedule"
)

// Status is the care plan lifecycle state. The only transition is
// ACTIVE -> COMPLETED.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

// CarePlan maps to the care_plan table. Schedule holds the encoded
// schedule.Schedule JSON exactly as stored.
type CarePlan struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	PatientID            uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID             uuid.UUID `db:"doctor_id" json:"doctor_id"`
	OriginalInstructions string    `db:"original_instructions" json:"original_instructions"`
	Schedule             string    `db:"schedule" json:"-"`
	Status               Status    `db:"status" json:"status"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

func (cp *CarePlan) IsActive() bool {
	return cp.Status == StatusActive
}

// DecodedSchedule parses the stored schedule, returning nil when the stored
// text is not valid JSON.
func (cp *CarePlan) DecodedSchedule() *schedule.Schedule {
	return schedule.DecodeLenient(cp.Schedule)
}

// View is the API representation of a plan with its schedule decoded.
type View struct {
	*CarePlan
	Schedule *schedule.Schedule `json:"schedule"`
}

func NewView(cp *CarePlan) View {
	return View{CarePlan: cp, Schedule: cp.DecodedSchedule()}
}
