package access

import (
	"context"
	"time"

	"unitrack-api/internal/domain"
)

// Identity is what the identity provider resolves for an authenticated
// principal: the account attributes plus its full grant records. The
// session turns it into a UserProfile; it performs no authentication of
// its own.
type Identity struct {
	ID            string
	DisplayName   string
	Email         string
	Role          domain.Role
	Status        domain.UserStatus
	IsSystemAdmin bool
	Grants        []domain.ProgramAccess
}

// IdentityProvider resolves authenticated identities. Implementations own
// their retry and timeout policy; the session does neither.
type IdentityProvider interface {
	// ResolveIdentity loads the identity and grant records for the user.
	// A nil identity with a nil error is not a valid return; absence is
	// reported as an error wrapping ErrIdentityUnavailable.
	ResolveIdentity(ctx context.Context, userID string) (*Identity, error)
}

// UserSummary is a directory row for access administration screens.
type UserSummary struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"displayName"`
	Email       string            `json:"email"`
	Role        domain.Role       `json:"role"`
	Status      domain.UserStatus `json:"status"`
}

// PendingAccessRequest is a user awaiting access approval.
type PendingAccessRequest struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requestedAt"`
	Notes       string    `json:"notes,omitempty"`
}

// ProgramGrant is the input for assigning a user to a program.
type ProgramGrant struct {
	UserID      string
	ProgramID   string
	Role        domain.Role
	AccessLevel domain.ProgramAccessLevel
	GrantedBy   string
	ExpiresAt   *time.Time
}

// ProjectGrant is the input for assigning a user to a project. ProgramID is
// the owning program, kept on the grant so project access never matches
// across tenant boundaries.
type ProjectGrant struct {
	UserID      string
	ProjectID   string
	ProgramID   string
	Role        domain.Role
	AccessLevel domain.ProjectAccessLevel
	GrantedBy   string
	ExpiresAt   *time.Time
}

// GrantStore persists grant records. Each call is expected to be atomic at
// the store level; the session never partially applies a mutation locally.
type GrantStore interface {
	ListUsers(ctx context.Context) ([]UserSummary, error)
	ListPendingAccessRequests(ctx context.Context) ([]PendingAccessRequest, error)

	CreateProgramGrant(ctx context.Context, grant ProgramGrant) error
	CreateProjectGrant(ctx context.Context, grant ProjectGrant) error
	DeleteProgramGrant(ctx context.Context, userID, programID string) error
	DeleteProjectGrant(ctx context.Context, userID, projectID string) error

	ApproveAccessRequest(ctx context.Context, userID string, role domain.Role, notes string) error
	DenyAccessRequest(ctx context.Context, userID string, notes string) error
}

// ProgramRegistry lists programs for populating the session's available set.
type ProgramRegistry interface {
	ListPrograms(ctx context.Context) ([]domain.Program, error)
}

// SelectionStore persists the user's current program choice so a later
// session can restore it.
type SelectionStore interface {
	SaveProgramSelection(ctx context.Context, userID, programID string) error
	LoadProgramSelection(ctx context.Context, userID string) (string, error)
}
