// Package access implements the access-control core: pure decision
// functions over a resolved user profile, and the stateful session that
// mediates grant mutations against the external store.
package access

import (
	"unitrack-api/internal/domain"
)

// Denial reasons surfaced on AccessResult. Denial is a normal return value,
// never an error; these strings exist for diagnostics and UI fallbacks.
const (
	ReasonNoProgramAccess      = "no program access"
	ReasonNoProjectAccess      = "no project access"
	ReasonProgramPrivileges    = "insufficient program privileges"
	ReasonProjectPrivileges    = "insufficient project privileges"
	ReasonMissingContext       = "resource type has no role-level permissions"
	ReasonActionNotInCatalog   = "action requires a scoped grant"
	ReasonPermissionNotGranted = "role permissions do not cover this action"
)

// HasPermission reports whether the user's effective permission list grants
// the action on the resource. There is no role special-casing here: the
// admin catalog entry already grants everything, which keeps this check
// uniform and testable independent of role identity.
func HasPermission(user *domain.UserProfile, resource domain.Resource, action domain.Action) bool {
	for _, p := range user.Permissions {
		if p.Resource == resource {
			return p.Allows(action)
		}
	}
	return false
}

// HasRole reports whether the user holds exactly the given role. Roles do
// not imply other roles.
func HasRole(user *domain.UserProfile, role domain.Role) bool {
	return user.Role == role
}

// HasAnyRole reports whether the user holds one of the given roles.
func HasAnyRole(user *domain.UserProfile, roles ...domain.Role) bool {
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

// HasAccessToProgram reports whether the user can see the program at all.
func HasAccessToProgram(user *domain.UserProfile, programID string) bool {
	if user.CanSeeAllPrograms {
		return true
	}
	for _, id := range user.AccessiblePrograms {
		if id == programID {
			return true
		}
	}
	return false
}

// HasAccessToProject reports whether the user can see the project.
//
// When programID is non-nil the check is confined to that program's grant:
// a "program" or "admin" level grant sees every project in it, a "limited"
// grant sees only its listed projects, and no grant at all means no access.
// There is deliberately no fallthrough to the flattened project set in that
// case, since access levels genuinely differ per program and a flattened
// match could leak cross-program visibility.
//
// When programID is nil the flattened accessible-projects set decides.
func HasAccessToProject(user *domain.UserProfile, projectID string, programID *string) bool {
	if user.CanSeeAllPrograms {
		return true
	}

	if programID != nil {
		pa := user.FindProgramAccess(*programID)
		if pa == nil {
			return false
		}
		if pa.AccessLevel == domain.ProgramAccessProgram || pa.AccessLevel == domain.ProgramAccessAdmin {
			return true
		}
		for _, pj := range pa.Projects {
			if pj.ProjectID == projectID {
				return true
			}
		}
		return false
	}

	for _, id := range user.AccessibleProjects {
		if id == projectID {
			return true
		}
	}
	return false
}

// CanManageProgram reports whether the user may administer the program:
// system admins always, otherwise an "admin" level program grant.
func CanManageProgram(user *domain.UserProfile, programID string) bool {
	if user.Role == domain.RoleAdmin {
		return true
	}
	pa := user.FindProgramAccess(programID)
	return pa != nil && pa.AccessLevel == domain.ProgramAccessAdmin
}

// CanManageProject reports whether the user may administer the project.
// A program-level "admin" grant manages every project in that program even
// without a per-project grant; otherwise an "admin" level project grant is
// required.
//
// Pass the owning program's id when known (routes always have it); with a
// nil programID only explicit grants can match, since the profile alone
// cannot tell which program owns an arbitrary project.
func CanManageProject(user *domain.UserProfile, projectID string, programID *string) bool {
	if user.Role == domain.RoleAdmin {
		return true
	}

	if programID != nil {
		pa := user.FindProgramAccess(*programID)
		if pa == nil {
			return false
		}
		if pa.AccessLevel == domain.ProgramAccessAdmin {
			return true
		}
		return hasProjectAdminGrant(pa, projectID)
	}

	for i := range user.ProgramAccess {
		pa := &user.ProgramAccess[i]
		if pa.AccessLevel == domain.ProgramAccessAdmin {
			for _, pj := range pa.Projects {
				if pj.ProjectID == projectID {
					return true
				}
			}
		}
		if hasProjectAdminGrant(pa, projectID) {
			return true
		}
	}
	return false
}

func hasProjectAdminGrant(pa *domain.ProgramAccess, projectID string) bool {
	for _, pj := range pa.Projects {
		if pj.ProjectID == projectID && pj.AccessLevel == domain.ProjectAccessAdmin {
			return true
		}
	}
	return false
}

// CheckAccess is the top-level decision entry point. It is pure: identical
// inputs against an unchanged profile always produce identical results.
//
// Scoped requests (program/project with context) are decided entirely by
// grant records; generic requests fall back to the permission catalog. The
// two never mix: role permissions answer "what kinds of operations can this
// role perform", grants answer "on which tenants and projects".
func CheckAccess(user *domain.UserProfile, req domain.AccessRequest) domain.AccessResult {
	// System admins bypass everything, malformed context included.
	if user.Role == domain.RoleAdmin {
		return domain.AccessResult{Granted: true, Scope: domain.ScopeSystem}
	}

	if req.ResourceType == domain.ResourceTypeProgram && req.Context.ProgramID != nil {
		programID := *req.Context.ProgramID
		hasAccess := HasAccessToProgram(user, programID)
		canManage := CanManageProgram(user, programID)

		if req.Action == domain.RequestActionAdmin && !canManage {
			return domain.AccessResult{Granted: false, Reason: ReasonProgramPrivileges}
		}
		if !hasAccess {
			return domain.AccessResult{Granted: false, Reason: ReasonNoProgramAccess}
		}
		scope := domain.ScopeLimited
		if canManage {
			scope = domain.ScopeProgram
		}
		return domain.AccessResult{Granted: true, Scope: scope}
	}

	if req.ResourceType == domain.ResourceTypeProject && req.Context.ProjectID != nil {
		projectID := *req.Context.ProjectID
		hasAccess := HasAccessToProject(user, projectID, req.Context.ProgramID)
		canManage := CanManageProject(user, projectID, req.Context.ProgramID)

		if req.Action == domain.RequestActionAdmin && !canManage {
			return domain.AccessResult{Granted: false, Reason: ReasonProjectPrivileges}
		}
		if !hasAccess {
			return domain.AccessResult{Granted: false, Reason: ReasonNoProjectAccess}
		}
		scope := domain.ScopeLimited
		if canManage {
			scope = domain.ScopeProject
		}
		return domain.AccessResult{Granted: true, Scope: scope}
	}

	// Generic fallback: task/user/system requests, or scoped requests that
	// arrived without their context.
	resource, ok := req.ResourceType.CatalogResource()
	if !ok {
		return domain.AccessResult{Granted: false, Reason: ReasonMissingContext}
	}
	action, ok := req.Action.CatalogAction()
	if !ok {
		return domain.AccessResult{Granted: false, Reason: ReasonActionNotInCatalog}
	}
	if !HasPermission(user, resource, action) {
		return domain.AccessResult{Granted: false, Reason: ReasonPermissionNotGranted}
	}
	return domain.AccessResult{Granted: true, Scope: domain.ScopeLimited}
}
