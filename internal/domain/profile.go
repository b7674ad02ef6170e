package domain

import (
	"time"
)

// =====================================================
// User Status
// =====================================================

// UserStatus is the lifecycle status of a user account.
type UserStatus string

const (
	UserStatusActive          UserStatus = "active"
	UserStatusInactive        UserStatus = "inactive"
	UserStatusPendingApproval UserStatus = "pending_approval"
	UserStatusSuspended       UserStatus = "suspended"
)

// IsValid checks if the status is one of the defined constants
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPendingApproval, UserStatusSuspended:
		return true
	default:
		return false
	}
}

// =====================================================
// Grant Records
// =====================================================

// ProjectAccess grants a user a role and access level on one project.
type ProjectAccess struct {
	ProjectID   string             `json:"projectId" db:"project_id"`
	Role        Role               `json:"role" db:"role"`
	AccessLevel ProjectAccessLevel `json:"accessLevel" db:"access_level"`
	GrantedAt   time.Time          `json:"grantedAt" db:"granted_at"`
	GrantedBy   string             `json:"grantedBy" db:"granted_by"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty" db:"expires_at"`
}

// Expired reports whether the grant has passed its expiry, if it has one.
func (a ProjectAccess) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// ProgramAccess grants a user a role and access level within one program,
// together with the project grants scoped to that program.
//
// Level semantics:
//   - limited: visibility restricted to the listed project grants
//   - program: visibility of every project in the program
//   - admin:   full visibility plus management rights over the program
type ProgramAccess struct {
	ProgramID   string             `json:"programId" db:"program_id"`
	Role        Role               `json:"role" db:"role"`
	AccessLevel ProgramAccessLevel `json:"accessLevel" db:"access_level"`
	GrantedAt   time.Time          `json:"grantedAt" db:"granted_at"`
	GrantedBy   string             `json:"grantedBy" db:"granted_by"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty" db:"expires_at"`
	Projects    []ProjectAccess    `json:"projects"`
}

// Expired reports whether the grant has passed its expiry, if it has one.
func (a ProgramAccess) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// =====================================================
// User Profile (session cache, not source of truth)
// =====================================================

// UserProfile is the resolved identity plus authorization snapshot for one
// user. It is constructed at authentication time from the identity provider
// and the grant store, held for the session, and rebuilt wholesale after any
// grant mutation. It is a cache; the store remains the source of truth.
type UserProfile struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Status      UserStatus `json:"status"`

	// Permissions is the effective permission list: catalog defaults for
	// Role unless explicitly overridden at construction.
	Permissions []Permission `json:"permissions"`

	// ProgramAccess holds only effective (non-expired) grants after Recompute.
	ProgramAccess []ProgramAccess `json:"programAccess"`

	// Derived sets, rebuilt by Recompute. Irrelevant for system admins,
	// who bypass them entirely.
	AccessiblePrograms []string `json:"accessiblePrograms"`
	AccessibleProjects []string `json:"accessibleProjects"`

	CanSeeAllPrograms bool `json:"canSeeAllPrograms"`
	CanCreatePrograms bool `json:"canCreatePrograms"`
}

// NewUserProfile builds a profile from an authenticated identity and its
// grant records, populating permissions from the catalog and deriving the
// accessible sets.
func NewUserProfile(id, displayName, email string, role Role, status UserStatus, grants []ProgramAccess) *UserProfile {
	p := &UserProfile{
		ID:            id,
		DisplayName:   displayName,
		Email:         email,
		Role:          role,
		Status:        status,
		Permissions:   DefaultPermissions(role),
		ProgramAccess: grants,
	}
	p.Recompute(time.Now())
	return p
}

// Recompute rebuilds the derived fields from the grant records. It must be
// called after every grant mutation; the derived sets are never patched
// incrementally, which is what keeps them from going stale relative to the
// grant list.
//
// Grants expired as of now are dropped from the profile entirely so that
// every later decision sees a consistent snapshot.
func (p *UserProfile) Recompute(now time.Time) {
	p.CanSeeAllPrograms = p.Role == RoleAdmin
	p.CanCreatePrograms = p.Role == RoleAdmin

	effective := make([]ProgramAccess, 0, len(p.ProgramAccess))
	programs := make([]string, 0, len(p.ProgramAccess))
	var projects []string

	for _, pa := range p.ProgramAccess {
		if pa.Expired(now) {
			continue
		}

		kept := pa
		kept.Projects = make([]ProjectAccess, 0, len(pa.Projects))
		for _, pj := range pa.Projects {
			if pj.Expired(now) {
				continue
			}
			kept.Projects = append(kept.Projects, pj)
			projects = append(projects, pj.ProjectID)
		}

		effective = append(effective, kept)
		programs = append(programs, pa.ProgramID)
	}

	p.ProgramAccess = effective
	p.AccessiblePrograms = programs
	p.AccessibleProjects = projects
}

// FindProgramAccess returns the effective grant for the given program, or
// nil if the user holds none.
func (p *UserProfile) FindProgramAccess(programID string) *ProgramAccess {
	for i := range p.ProgramAccess {
		if p.ProgramAccess[i].ProgramID == programID {
			return &p.ProgramAccess[i]
		}
	}
	return nil
}
