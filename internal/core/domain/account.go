package domain

import (
	"strings"
	"time"
)

// Role is the account type fixed at registration. Exactly two roles exist;
// each maps to exactly one RoleProfile variant.
type Role string

const (
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the two supported roles.
func (r Role) Valid() bool {
	return r == RoleFaculty || r == RoleStudent
}

// Account is the root identity record. Email is globally unique
// (case-sensitive, as stored); Role never changes after creation.
type Account struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName is the human-readable name embedded in session claims.
func (a *Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// RoleProfile is the role-specific extension record. Exactly one profile
// exists per account, of the variant matching Account.Role — the tagged-union
// shape keeps that invariant type-checkable instead of null-field sprawl.
type RoleProfile interface {
	// ProfileRole identifies the variant.
	ProfileRole() Role
	// BusinessKey is the externally assigned unique identifier
	// (faculty id or registration number).
	BusinessKey() string
}

// FacultyProfile is the RoleProfile variant for faculty accounts.
type FacultyProfile struct {
	FacultyID      string    `json:"faculty_id"`
	Department     string    `json:"department"`
	Specialization string    `json:"specialization"`
	DateOfJoining  time.Time `json:"date_of_joining"`
	DateOfBirth    time.Time `json:"date_of_birth"`
}

func (FacultyProfile) ProfileRole() Role     { return RoleFaculty }
func (p FacultyProfile) BusinessKey() string { return p.FacultyID }

// StudentProfile is the RoleProfile variant for student accounts.
type StudentProfile struct {
	RegistrationNumber string  `json:"registration_number"`
	Department         string  `json:"department"`
	Year               int     `json:"year"`
	CGPA               float64 `json:"cgpa"`
}

func (StudentProfile) ProfileRole() Role     { return RoleStudent }
func (p StudentProfile) BusinessKey() string { return p.RegistrationNumber }

// Identity is the merged account + profile view returned to authenticated
// callers.
type Identity struct {
	Account Account
	Profile RoleProfile
}
