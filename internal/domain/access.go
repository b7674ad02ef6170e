package domain

import (
	"database/sql/driver"
	"fmt"
)

// =====================================================
// Role (Type Safety)
// =====================================================

// Role is a user's global role. Privilege is defined by the permission
// catalog and the access resolver, not by the ordering of these constants.
type Role string

const (
	// RoleAdmin is the system administrator role. It bypasses all
	// program/project scoping via the resolver.
	RoleAdmin Role = "admin"

	// RoleProjectManager can manage projects and assign project members.
	RoleProjectManager Role = "project_manager"

	// RoleTechnician performs day-to-day production and inventory work.
	RoleTechnician Role = "technician"

	// RoleVisitor has read-only access.
	RoleVisitor Role = "visitor"
)

// String returns the string representation of the Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleTechnician, RoleVisitor:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner so Role can be read from a text column.
func (r *Role) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}

	*r = Role(str)
	if !r.IsValid() {
		return fmt.Errorf("invalid Role value: %s", str)
	}
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid Role value: %s", string(r))
	}
	return string(r), nil
}

// =====================================================
// Permission Resources and Actions (closed sets)
// =====================================================

// Resource identifies a permission resource. The set is closed: adding a
// resource means adding a constant here and a catalog row, nothing stringly.
type Resource string

const (
	ResourceProduction Resource = "production"
	ResourceInventory  Resource = "inventory"
	ResourceProjects   Resource = "projects"
	ResourceTasks      Resource = "tasks"
	ResourceUsers      Resource = "users"
	ResourceReports    Resource = "reports"
	ResourceSettings   Resource = "settings"
)

// Resources lists every permission resource, in catalog order.
var Resources = []Resource{
	ResourceProduction,
	ResourceInventory,
	ResourceProjects,
	ResourceTasks,
	ResourceUsers,
	ResourceReports,
	ResourceSettings,
}

// IsValid checks if the resource is one of the defined constants
func (r Resource) IsValid() bool {
	switch r {
	case ResourceProduction, ResourceInventory, ResourceProjects,
		ResourceTasks, ResourceUsers, ResourceReports, ResourceSettings:
		return true
	default:
		return false
	}
}

// Action is an operation on a permission resource.
type Action string

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// IsValid checks if the action is one of the defined constants
func (a Action) IsValid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionDelete, ActionApprove:
		return true
	default:
		return false
	}
}

// Permission pairs a resource with the actions allowed on it.
// An empty Actions slice means no access to the resource.
type Permission struct {
	Resource Resource `json:"resource"`
	Actions  []Action `json:"actions"`
}

// Allows reports whether the permission grants the given action.
func (p Permission) Allows(action Action) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// =====================================================
// Grant Access Levels
// =====================================================

// ProgramAccessLevel is the breadth of a user's grant within one program.
type ProgramAccessLevel string

const (
	// ProgramAccessLimited restricts visibility to explicitly granted projects.
	ProgramAccessLimited ProgramAccessLevel = "limited"

	// ProgramAccessProgram grants visibility of every project in the program.
	ProgramAccessProgram ProgramAccessLevel = "program"

	// ProgramAccessAdmin grants full visibility plus management rights.
	ProgramAccessAdmin ProgramAccessLevel = "admin"
)

// IsValid checks if the level is one of the defined constants
func (l ProgramAccessLevel) IsValid() bool {
	switch l {
	case ProgramAccessLimited, ProgramAccessProgram, ProgramAccessAdmin:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (l *ProgramAccessLevel) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ProgramAccessLevel", src)
	}

	*l = ProgramAccessLevel(str)
	if !l.IsValid() {
		return fmt.Errorf("invalid ProgramAccessLevel value: %s", str)
	}
	return nil
}

// Value implements driver.Valuer.
func (l ProgramAccessLevel) Value() (driver.Value, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("invalid ProgramAccessLevel value: %s", string(l))
	}
	return string(l), nil
}

// ProjectAccessLevel is the breadth of a user's grant on one project.
type ProjectAccessLevel string

const (
	ProjectAccessRead   ProjectAccessLevel = "read"
	ProjectAccessWrite  ProjectAccessLevel = "write"
	ProjectAccessManage ProjectAccessLevel = "manage"
	ProjectAccessAdmin  ProjectAccessLevel = "admin"
)

// IsValid checks if the level is one of the defined constants
func (l ProjectAccessLevel) IsValid() bool {
	switch l {
	case ProjectAccessRead, ProjectAccessWrite, ProjectAccessManage, ProjectAccessAdmin:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (l *ProjectAccessLevel) Scan(src interface{}) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ProjectAccessLevel", src)
	}

	*l = ProjectAccessLevel(str)
	if !l.IsValid() {
		return fmt.Errorf("invalid ProjectAccessLevel value: %s", str)
	}
	return nil
}

// Value implements driver.Valuer.
func (l ProjectAccessLevel) Value() (driver.Value, error) {
	if !l.IsValid() {
		return nil, fmt.Errorf("invalid ProjectAccessLevel value: %s", string(l))
	}
	return string(l), nil
}

// =====================================================
// Access Decision Contract
// =====================================================

// ResourceType classifies what an access request targets.
type ResourceType string

const (
	ResourceTypeProgram ResourceType = "program"
	ResourceTypeProject ResourceType = "project"
	ResourceTypeTask    ResourceType = "task"
	ResourceTypeUser    ResourceType = "user"
	ResourceTypeSystem  ResourceType = "system"
)

// IsValid checks if the resource type is one of the defined constants
func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceTypeProgram, ResourceTypeProject, ResourceTypeTask,
		ResourceTypeUser, ResourceTypeSystem:
		return true
	default:
		return false
	}
}

// CatalogResource maps a generic resource type onto the permission catalog.
// Program and project requests never consult the catalog, so only the
// generic types map. System deliberately aliases the settings resource: the
// catalog has no standalone system entry, and settings permissions are what
// distinguish roles with system-level reach.
func (t ResourceType) CatalogResource() (Resource, bool) {
	switch t {
	case ResourceTypeTask:
		return ResourceTasks, true
	case ResourceTypeUser:
		return ResourceUsers, true
	case ResourceTypeSystem:
		return ResourceSettings, true
	default:
		return "", false
	}
}

// RequestAction is the operation an access request asks for. It is broader
// than the catalog's Action set: Manage and Admin only have meaning for
// program/project scoped requests.
type RequestAction string

const (
	RequestActionRead   RequestAction = "read"
	RequestActionWrite  RequestAction = "write"
	RequestActionDelete RequestAction = "delete"
	RequestActionManage RequestAction = "manage"
	RequestActionAdmin  RequestAction = "admin"
)

// IsValid checks if the request action is one of the defined constants
func (a RequestAction) IsValid() bool {
	switch a {
	case RequestActionRead, RequestActionWrite, RequestActionDelete,
		RequestActionManage, RequestActionAdmin:
		return true
	default:
		return false
	}
}

// CatalogAction maps the request action onto a catalog action. Manage and
// Admin have no catalog counterpart and report false.
func (a RequestAction) CatalogAction() (Action, bool) {
	switch a {
	case RequestActionRead:
		return ActionRead, true
	case RequestActionWrite:
		return ActionWrite, true
	case RequestActionDelete:
		return ActionDelete, true
	default:
		return "", false
	}
}

// AccessScope describes the breadth of authority that produced an allow.
type AccessScope string

const (
	ScopeSystem  AccessScope = "system"
	ScopeProgram AccessScope = "program"
	ScopeProject AccessScope = "project"
	ScopeLimited AccessScope = "limited"
)

// AccessContext narrows a request to a program and optionally a project.
type AccessContext struct {
	ProgramID *string `json:"programId,omitempty"`
	ProjectID *string `json:"projectId,omitempty"`
}

// AccessRequest is the input to the access decision entry point.
type AccessRequest struct {
	ResourceType ResourceType  `json:"resourceType"`
	ResourceID   *string       `json:"resourceId,omitempty"`
	Action       RequestAction `json:"action"`
	Context      AccessContext `json:"context"`
}

// AccessResult is the decision output. Reason is populated iff the request
// was denied; Scope is populated iff it was granted.
type AccessResult struct {
	Granted bool        `json:"granted"`
	Reason  string      `json:"reason,omitempty"`
	Scope   AccessScope `json:"scope,omitempty"`
}
