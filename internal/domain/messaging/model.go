package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Message is a note from the care team attached to a care plan.
type Message struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CarePlanID uuid.UUID `db:"care_plan_id" json:"care_plan_id"`
	SenderID   uuid.UUID `db:"sender_id" json:"sender_id"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
