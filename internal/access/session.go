package access

import (
	"context"
	"fmt"
	"sync"

	"unitrack-api/internal/domain"
	"unitrack-api/internal/observability/logger"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateAccessDenied    State = "access_denied"
)

// Deps are the collaborators a Session consumes. Identity, Grants and
// Programs are required; Selections and OnProfileInvalidated are optional.
type Deps struct {
	Identity   IdentityProvider
	Grants     GrantStore
	Programs   ProgramRegistry
	Selections SelectionStore
	Log        *logger.Logger

	// OnProfileInvalidated is called after a grant mutation with the
	// affected user's id, so cached profiles elsewhere can be evicted.
	OnProfileInvalidated func(userID string)
}

// Session owns the current authenticated user and program context for one
// principal. It is the only writer of the cached UserProfile; the resolver
// and guards treat the profile as read-only input.
//
// Lifecycle: Unauthenticated -> Loading -> Authenticated | AccessDenied,
// with Logout returning to Unauthenticated. Initialize is single-flight:
// concurrent callers observe the in-flight load instead of duplicating it,
// and a load overtaken by Logout is discarded, not applied.
type Session struct {
	userID string
	deps   Deps

	mu                sync.Mutex
	state             State
	generation        uint64
	inflight          chan struct{}
	user              *domain.UserProfile
	currentProgramID  string
	availablePrograms []domain.Program
}

// NewSession creates an unauthenticated session for the given principal.
func NewSession(userID string, deps Deps) *Session {
	return &Session{
		userID: userID,
		deps:   deps,
		state:  StateUnauthenticated,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the cached profile, or ErrNotAuthenticated. Callers must
// treat the profile as read-only.
func (s *Session) User() (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.user == nil {
		return nil, ErrNotAuthenticated
	}
	return s.user, nil
}

// CurrentProgramID returns the selected program context, empty if none.
func (s *Session) CurrentProgramID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentProgramID
}

// AvailablePrograms returns the programs visible to the session's user.
func (s *Session) AvailablePrograms() []domain.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availablePrograms
}

// Initialize resolves the identity and builds the profile. Safe to call
// concurrently: late callers wait on the in-flight load and share its
// outcome. On failure the session lands in AccessDenied and the error is
// returned; re-authentication, not retry, is the way out.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoading {
		done := s.inflight
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		switch s.state {
		case StateAuthenticated:
			return nil
		case StateAccessDenied:
			return ErrIdentityUnavailable
		default:
			return ErrSuperseded
		}
	}

	s.state = StateLoading
	s.generation++
	gen := s.generation
	done := make(chan struct{})
	s.inflight = done
	s.mu.Unlock()

	profile, programs, restored, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(done)

	if s.generation != gen {
		// A logout or newer initialize won the race; this response is stale.
		return ErrSuperseded
	}

	if err != nil {
		s.state = StateAccessDenied
		s.user = nil
		s.availablePrograms = nil
		s.currentProgramID = ""
		s.deps.Log.Warn(ctx, "session initialization failed",
			logger.Module("access"),
			logger.Action("initialize"),
			zap.String("user_id", s.userID),
			zap.Error(err),
		)
		return err
	}

	s.state = StateAuthenticated
	s.user = profile
	s.availablePrograms = visiblePrograms(profile, programs)
	if restored != "" && HasAccessToProgram(profile, restored) {
		s.currentProgramID = restored
	}

	s.deps.Log.Info(ctx, "session authenticated",
		logger.Module("access"),
		logger.Action("initialize"),
		zap.String("user_id", profile.ID),
		zap.String("role", profile.Role.String()),
		zap.Int("programs", len(profile.AccessiblePrograms)),
	)
	return nil
}

// load performs the collaborator calls without holding the session lock.
func (s *Session) load(ctx context.Context) (*domain.UserProfile, []domain.Program, string, error) {
	ident, err := s.deps.Identity.ResolveIdentity(ctx, s.userID)
	if err != nil {
		return nil, nil, "", err
	}
	if ident == nil {
		return nil, nil, "", ErrIdentityUnavailable
	}

	// The identity's stored role is the source of record; the system-admin
	// flag still forces Admin so the bypass invariant holds. An identity
	// arriving without a usable role falls back to Technician.
	role := ident.Role
	if ident.IsSystemAdmin {
		role = domain.RoleAdmin
	} else if !role.IsValid() {
		role = domain.RoleTechnician
	}

	profile := domain.NewUserProfile(ident.ID, ident.DisplayName, ident.Email, role, ident.Status, ident.Grants)

	programs, err := s.deps.Programs.ListPrograms(ctx)
	if err != nil {
		return nil, nil, "", fmt.Errorf("list programs: %w", err)
	}

	restored := ""
	if s.deps.Selections != nil {
		if sel, err := s.deps.Selections.LoadProgramSelection(ctx, s.userID); err == nil {
			restored = sel
		}
	}

	return profile, programs, restored, nil
}

func visiblePrograms(user *domain.UserProfile, programs []domain.Program) []domain.Program {
	out := make([]domain.Program, 0, len(programs))
	for _, p := range programs {
		if HasAccessToProgram(user, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// CheckAccess applies the resolver to the session's profile. An
// unauthenticated session denies everything; denial is a result, never an
// error.
func (s *Session) CheckAccess(req domain.AccessRequest) domain.AccessResult {
	user, err := s.User()
	if err != nil {
		return domain.AccessResult{Granted: false, Reason: "not authenticated"}
	}
	return CheckAccess(user, req)
}

// SwitchProgram selects the current program context. Callers may invoke it
// speculatively, so a denied or unauthenticated switch is a logged no-op
// rather than an error.
func (s *Session) SwitchProgram(ctx context.Context, programID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated || s.user == nil {
		s.deps.Log.Warn(ctx, "program switch ignored: not authenticated",
			logger.Module("access"),
			logger.Action("switch_program"),
			zap.String("program_id", programID),
		)
		return
	}
	if !HasAccessToProgram(s.user, programID) {
		s.deps.Log.Warn(ctx, "program switch ignored: no access",
			logger.Module("access"),
			logger.Action("switch_program"),
			zap.String("user_id", s.user.ID),
			zap.String("program_id", programID),
		)
		return
	}

	s.currentProgramID = programID

	if s.deps.Selections != nil {
		if err := s.deps.Selections.SaveProgramSelection(ctx, s.userID, programID); err != nil {
			// The switch itself stands; only restoration is affected.
			s.deps.Log.Warn(ctx, "failed to persist program selection",
				logger.Module("access"),
				logger.Action("switch_program"),
				zap.Error(err),
			)
		}
	}
}

// Logout clears the local session state. Any in-flight initialize is
// superseded and its result discarded. Server-side session invalidation is
// the authentication collaborator's job, not this method's.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = StateUnauthenticated
	s.user = nil
	s.currentProgramID = ""
	s.availablePrograms = nil
}

// =====================================================
// Administrative mutations
// =====================================================
//
// Each mutation checks the caller's role locally before touching the store,
// so an unauthorized attempt never reaches it. On store success the
// affected user's profile is reloaded wholesale rather than patched. A
// store error propagates unchanged and leaves local state untouched.

// ListUsers returns the user directory. Admin only.
func (s *Session) ListUsers(ctx context.Context) ([]UserSummary, error) {
	user, err := s.User()
	if err != nil {
		return nil, err
	}
	if !HasRole(user, domain.RoleAdmin) {
		return nil, NewPermissionError("only administrators can list users")
	}
	return s.deps.Grants.ListUsers(ctx)
}

// ListPendingAccessRequests returns users awaiting approval. Admin only.
func (s *Session) ListPendingAccessRequests(ctx context.Context) ([]PendingAccessRequest, error) {
	user, err := s.User()
	if err != nil {
		return nil, err
	}
	if !HasRole(user, domain.RoleAdmin) {
		return nil, NewPermissionError("only administrators can list access requests")
	}
	return s.deps.Grants.ListPendingAccessRequests(ctx)
}

// AssignUserToProgram grants program access. Admin only.
func (s *Session) AssignUserToProgram(ctx context.Context, grant ProgramGrant) error {
	user, err := s.User()
	if err != nil {
		return err
	}
	if !HasRole(user, domain.RoleAdmin) {
		return NewPermissionError("only administrators can assign program access")
	}

	grant.GrantedBy = user.ID
	if err := s.deps.Grants.CreateProgramGrant(ctx, grant); err != nil {
		return err
	}
	return s.afterGrantMutation(ctx, grant.UserID, "assign_program")
}

// AssignUserToProject grants project access. Admins and project managers.
func (s *Session) AssignUserToProject(ctx context.Context, grant ProjectGrant) error {
	user, err := s.User()
	if err != nil {
		return err
	}
	if !HasAnyRole(user, domain.RoleAdmin, domain.RoleProjectManager) {
		return NewPermissionError("only administrators and project managers can assign project access")
	}

	grant.GrantedBy = user.ID
	if err := s.deps.Grants.CreateProjectGrant(ctx, grant); err != nil {
		return err
	}
	return s.afterGrantMutation(ctx, grant.UserID, "assign_project")
}

// RemoveUserFromProgram revokes program access. Admin only.
func (s *Session) RemoveUserFromProgram(ctx context.Context, userID, programID string) error {
	user, err := s.User()
	if err != nil {
		return err
	}
	if !HasRole(user, domain.RoleAdmin) {
		return NewPermissionError("only administrators can revoke program access")
	}

	if err := s.deps.Grants.DeleteProgramGrant(ctx, userID, programID); err != nil {
		return err
	}
	return s.afterGrantMutation(ctx, userID, "remove_program")
}

// RemoveUserFromProject revokes project access. Admins and project managers.
func (s *Session) RemoveUserFromProject(ctx context.Context, userID, projectID string) error {
	user, err := s.User()
	if err != nil {
		return err
	}
	if !HasAnyRole(user, domain.RoleAdmin, domain.RoleProjectManager) {
		return NewPermissionError("only administrators and project managers can revoke project access")
	}

	if err := s.deps.Grants.DeleteProjectGrant(ctx, userID, projectID); err != nil {
		return err
	}
	return s.afterGrantMutation(ctx, userID, "remove_project")
}

// ApproveUserAccess approves a pending access request. Admin only.
func (s *Session) ApproveUserAccess(ctx context.Context, userID string, role domain.Role, notes string) error {
	user, err := s.User()
	if err != nil {
		return err
	}
	if !HasRole(user, domain.RoleAdmin) {
		return NewPermissionError("only administrators can approve access requests")
	}

	if err := s.deps.Grants.ApproveAccessRequest(ctx, userID, role, notes); err != nil {
		return err
	}
	return s.afterGrantMutation(ctx, userID, "approve_access")
}

// DenyUserAccess denies a pending access request. Admin only.
func (s *Session) DenyUserAccess(ctx context.Context, userID, notes string) error {
	user, err := s.User()
	if err != nil {
		return err
	}
	if !HasRole(user, domain.RoleAdmin) {
		return NewPermissionError("only administrators can deny access requests")
	}

	if err := s.deps.Grants.DenyAccessRequest(ctx, userID, notes); err != nil {
		return err
	}
	return s.afterGrantMutation(ctx, userID, "deny_access")
}

// afterGrantMutation evicts the affected user's cached profile elsewhere
// and, when the caller mutated their own grants, reloads this session's
// profile in full.
func (s *Session) afterGrantMutation(ctx context.Context, affectedUserID, action string) error {
	s.deps.Log.Info(ctx, "grant mutation applied",
		logger.Module("access"),
		logger.Action(action),
		zap.String("affected_user_id", affectedUserID),
	)

	if s.deps.OnProfileInvalidated != nil && affectedUserID != s.userID {
		s.deps.OnProfileInvalidated(affectedUserID)
	}

	if affectedUserID == s.userID {
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("reload profile after grant mutation: %w", err)
		}
	}
	return nil
}

// reload rebuilds the profile from the collaborators without a state
// transition. A reload overtaken by logout is dropped.
func (s *Session) reload(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	profile, programs, _, err := s.load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.state != StateAuthenticated {
		return nil
	}
	s.user = profile
	s.availablePrograms = visiblePrograms(profile, programs)
	if s.currentProgramID != "" && !HasAccessToProgram(profile, s.currentProgramID) {
		s.currentProgramID = ""
	}
	return nil
}
