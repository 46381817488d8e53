package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpms/rpms/internal/platform/auth"
)

// User maps to the app_user table. Doctors and patients share one table and
// are told apart by Role.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Role           auth.Role  `db:"role" json:"role"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	MedicalHistory *string    `db:"medical_history" json:"medical_history,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Validate checks the fields required to store a user.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role: %q", u.Role)
	}
	return nil
}

// AgeAt is the calendar-year difference between now and the birth year.
// It does not account for whether the birthday has passed yet.
func (u *User) AgeAt(now time.Time) (int, bool) {
	if u.DateOfBirth == nil {
		return 0, false
	}
	return now.Year() - u.DateOfBirth.Year(), true
}

// PatientContext renders the fixed patient summary handed to the plan
// generator alongside the doctor's instructions.
func PatientContext(u *User, now time.Time) string {
	age := "Unknown"
	if years, ok := u.AgeAt(now); ok {
		age = fmt.Sprintf("%d", years)
	}
	gender := "Unknown"
	if u.Gender != nil && strings.TrimSpace(*u.Gender) != "" {
		gender = *u.Gender
	}
	history := "None"
	if u.MedicalHistory != nil && strings.TrimSpace(*u.MedicalHistory) != "" {
		history = *u.MedicalHistory
	}
	return fmt.Sprintf("Name: %s\nAge: %s\nGender: %s\nMedical History: %s", u.Name, age, gender, history)
}
