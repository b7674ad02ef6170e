package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDefaultRole rejects program settings naming an unknown role.
var ErrInvalidDefaultRole = errors.New("default project role is not a valid role")

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// IsValid checks if the status is one of the defined constants
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted:
		return true
	default:
		return false
	}
}

// Project is a unit of work within a program. Access to it is governed by
// the owning program's grants plus per-project grants.
type Project struct {
	ID        string        `json:"id" db:"id"`
	ProgramID string        `json:"programId" db:"program_id"`
	Name      string        `json:"name" db:"name"`
	Code      string        `json:"code" db:"code"`
	Status    ProjectStatus `json:"status" db:"status"`
	CreatedBy string        `json:"createdBy" db:"created_by"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// CreateProjectRequest DTO for project creation. ProgramID comes from the
// path, CreatedBy from the authenticated caller.
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Code string `json:"code" validate:"required,min=2,max=16,alphanum"`

	Status *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning active on_hold completed"`
}

// UpdateProjectRequest DTO for partial project update.
type UpdateProjectRequest struct {
	Name   *string        `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Status *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=planning active on_hold completed"`
}

// Validate sanitizes and validates the create request.
func (r *CreateProjectRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))

	validate := validator.New()
	return validate.Struct(r)
}

// Validate sanitizes and validates the update request.
func (r *UpdateProjectRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}

	validate := validator.New()
	return validate.Struct(r)
}
