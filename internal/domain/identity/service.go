package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
)

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

// CreateUser provisions an account. It backs the "user add" admin command;
// self-registration is handled outside this service.
func (s *Service) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if err := u.Validate(); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetPatient returns the user only if they hold the PATIENT role.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != auth.RolePatient {
		return nil, apperr.NotFound("patient %s not found", id)
	}
	return u, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListByRole(ctx, auth.RolePatient, limit, offset)
}

func (s *Service) UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*User, error) {
	return s.users.GetByIDs(ctx, ids)
}
