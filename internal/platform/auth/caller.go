package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/platform/apperr"
)

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Caller identifies the authenticated user behind a request.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

type contextKey string

const callerKey contextKey = "caller"

// WithCaller stores the caller on ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext returns the caller stored by the auth middleware.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

// Require returns an authorization error unless the caller holds role.
func (c Caller) Require(role Role) error {
	if c.ID == uuid.Nil {
		return apperr.Authorization("unauthenticated caller")
	}
	if c.Role != role {
		return apperr.Authorization("role %s required", role)
	}
	return nil
}

// RequirePatientAccess allows doctors, and patients acting on their own record.
func (c Caller) RequirePatientAccess(patientID uuid.UUID) error {
	switch {
	case c.ID == uuid.Nil:
		return apperr.Authorization("unauthenticated caller")
	case c.Role == RoleDoctor:
		return nil
	case c.Role == RolePatient && c.ID == patientID:
		return nil
	default:
		return apperr.Authorization("access to patient %s denied", patientID)
	}
}
