package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/platform/auth"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByIDs returns the users found; missing ids are absent from the map.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error)
	ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error)
}
