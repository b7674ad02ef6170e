package domain

import "fmt"

// permissionCatalog is the baseline permission set per role, before any
// per-user override. Exactly one entry per role; every resource appears
// exactly once per entry, with an empty action set meaning no access.
//
// Admin's bypass in permission checks comes from this table granting every
// action on every resource, not from role branches in the resolver.
var permissionCatalog = map[Role][]Permission{
	RoleAdmin: {
		{Resource: ResourceProduction, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceInventory, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceProjects, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceTasks, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceUsers, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceReports, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceSettings, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
	},
	RoleProjectManager: {
		{Resource: ResourceProduction, Actions: []Action{ActionRead, ActionWrite, ActionApprove}},
		{Resource: ResourceInventory, Actions: []Action{ActionRead, ActionWrite}},
		{Resource: ResourceProjects, Actions: []Action{ActionRead, ActionWrite, ActionApprove}},
		{Resource: ResourceTasks, Actions: []Action{ActionRead, ActionWrite, ActionDelete, ActionApprove}},
		{Resource: ResourceUsers, Actions: []Action{ActionRead}},
		{Resource: ResourceReports, Actions: []Action{ActionRead, ActionWrite}},
		{Resource: ResourceSettings, Actions: []Action{ActionRead}},
	},
	RoleTechnician: {
		{Resource: ResourceProduction, Actions: []Action{ActionRead, ActionWrite}},
		{Resource: ResourceInventory, Actions: []Action{ActionRead, ActionWrite}},
		{Resource: ResourceProjects, Actions: []Action{ActionRead}},
		{Resource: ResourceTasks, Actions: []Action{ActionRead, ActionWrite}},
		{Resource: ResourceUsers, Actions: []Action{}},
		{Resource: ResourceReports, Actions: []Action{ActionRead}},
		{Resource: ResourceSettings, Actions: []Action{}},
	},
	RoleVisitor: {
		{Resource: ResourceProduction, Actions: []Action{ActionRead}},
		{Resource: ResourceInventory, Actions: []Action{ActionRead}},
		{Resource: ResourceProjects, Actions: []Action{ActionRead}},
		{Resource: ResourceTasks, Actions: []Action{ActionRead}},
		{Resource: ResourceUsers, Actions: []Action{}},
		{Resource: ResourceReports, Actions: []Action{ActionRead}},
		{Resource: ResourceSettings, Actions: []Action{}},
	},
}

// DefaultPermissions returns the catalog entry for the role as a fresh copy.
// Callers needing per-user customization override the copy; the catalog
// itself is never mutated.
//
// A role without a catalog entry is a programming error, not a runtime
// condition: the function panics so the gap is caught immediately.
func DefaultPermissions(role Role) []Permission {
	entry, ok := permissionCatalog[role]
	if !ok {
		panic(fmt.Sprintf("no permission catalog entry for role %q", role))
	}

	out := make([]Permission, len(entry))
	for i, p := range entry {
		actions := make([]Action, len(p.Actions))
		copy(actions, p.Actions)
		out[i] = Permission{Resource: p.Resource, Actions: actions}
	}
	return out
}
