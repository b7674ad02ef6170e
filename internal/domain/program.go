package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProgramStatus is the lifecycle status of a program. Programs are never
// hard-deleted; they transition to archived instead.
type ProgramStatus string

const (
	ProgramStatusActive   ProgramStatus = "active"
	ProgramStatusInactive ProgramStatus = "inactive"
	ProgramStatusArchived ProgramStatus = "archived"
)

// IsValid checks if the status is one of the defined constants
func (s ProgramStatus) IsValid() bool {
	switch s {
	case ProgramStatusActive, ProgramStatusInactive, ProgramStatusArchived:
		return true
	default:
		return false
	}
}

// ProgramSettings are per-tenant policy knobs.
type ProgramSettings struct {
	// AllowCrossProjectVisibility lets members with program-wide access see
	// data across projects they are not explicitly assigned to.
	AllowCrossProjectVisibility bool `json:"allowCrossProjectVisibility" db:"allow_cross_project_visibility"`

	// RequireProjectAssignment forces new members onto at least one project.
	RequireProjectAssignment bool `json:"requireProjectAssignment" db:"require_project_assignment"`

	// DefaultProjectRole is the role applied when a member is added to a
	// project without an explicit role. Nil means no default.
	DefaultProjectRole *Role `json:"defaultProjectRole,omitempty" db:"default_project_role"`
}

// Program is the tenant boundary. Programs own projects and every grant is
// scoped to one.
type Program struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Code      string          `json:"code" db:"code"`
	Status    ProgramStatus   `json:"status" db:"status"`
	Settings  ProgramSettings `json:"settings"`
	CreatedBy string          `json:"createdBy" db:"created_by"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// CreateProgramRequest DTO for program creation. CreatedBy is always taken
// from the authenticated caller, never from the body.
type CreateProgramRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Code string `json:"code" validate:"required,min=2,max=16,alphanum"`

	Settings *ProgramSettings `json:"settings,omitempty"`
}

// UpdateProgramRequest DTO for partial program update. Nil fields are left
// unchanged. Status transitions to archived go through the archive endpoint,
// not this DTO.
type UpdateProgramRequest struct {
	Name   *string        `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Status *ProgramStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`

	Settings *ProgramSettings `json:"settings,omitempty"`
}

// Validate sanitizes and validates the create request.
func (r *CreateProgramRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))

	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Settings != nil && r.Settings.DefaultProjectRole != nil && !r.Settings.DefaultProjectRole.IsValid() {
		return ErrInvalidDefaultRole
	}
	return nil
}

// Validate sanitizes and validates the update request.
func (r *UpdateProgramRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}

	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Settings != nil && r.Settings.DefaultProjectRole != nil && !r.Settings.DefaultProjectRole.IsValid() {
		return ErrInvalidDefaultRole
	}
	return nil
}
