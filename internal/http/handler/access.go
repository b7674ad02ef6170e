package handler

import (
	"net/http"
	"time"

	"unitrack-api/internal/access"
	"unitrack-api/internal/domain"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/observability/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AccessHandler exposes access administration: the user directory, pending
// access requests, grant management and the access check endpoint. All
// authorization lives in the session; the handler only shapes HTTP.
type AccessHandler struct{}

func NewAccessHandler() *AccessHandler {
	return &AccessHandler{}
}

type programGrantRequest struct {
	UserID      string     `json:"userId"`
	Role        string     `json:"role"`
	AccessLevel string     `json:"accessLevel"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type projectGrantRequest struct {
	UserID      string     `json:"userId"`
	AccessLevel string     `json:"accessLevel"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type approveRequest struct {
	Role  string `json:"role"`
	Notes string `json:"notes,omitempty"`
}

type denyRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ListUsers handles GET /v1/access/users
func (h *AccessHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	users, err := sess.ListUsers(ctx)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}
	if users == nil {
		users = []access.UserSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": users})
}

// ListAccessRequests handles GET /v1/access/requests
func (h *AccessHandler) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	requests, err := sess.ListPendingAccessRequests(ctx)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}
	if requests == nil {
		requests = []access.PendingAccessRequest{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": requests})
}

// ApproveAccessRequest handles POST /v1/access/requests/{userID}/approve
func (h *AccessHandler) ApproveAccessRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "userID is required")
		return
	}

	var req approveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	role := domain.Role(req.Role)
	if !role.IsValid() {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidRole, "role must be one of the defined roles")
		return
	}

	if err := sess.ApproveUserAccess(ctx, userID, role, req.Notes); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "access request approved",
		logger.Module("access"),
		logger.Action("approve"),
		zap.String("subject_id", userID),
		zap.String("role", req.Role),
	)

	w.WriteHeader(http.StatusNoContent)
}

// DenyAccessRequest handles POST /v1/access/requests/{userID}/deny
func (h *AccessHandler) DenyAccessRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "userID is required")
		return
	}

	var req denyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := sess.DenyUserAccess(ctx, userID, req.Notes); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "access request denied",
		logger.Module("access"),
		logger.Action("deny"),
		zap.String("subject_id", userID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// CreateProgramGrant handles POST /v1/access/programs/{programID}/grants
func (h *AccessHandler) CreateProgramGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID := chi.URLParam(r, "programID")
	if programID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProgramID, "programID is required")
		return
	}

	var req programGrantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "userId is required")
		return
	}

	role := domain.Role(req.Role)
	if !role.IsValid() {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidRole, "role must be one of the defined roles")
		return
	}
	level := domain.ProgramAccessLevel(req.AccessLevel)
	if !level.IsValid() {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "accessLevel must be limited, program or admin")
		return
	}

	grant := access.ProgramGrant{
		UserID:      req.UserID,
		ProgramID:   programID,
		Role:        role,
		AccessLevel: level,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := sess.AssignUserToProgram(ctx, grant); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "program grant created",
		logger.Module("access"),
		logger.Action("grant_program"),
		zap.String("subject_id", req.UserID),
		zap.String("program_id", programID),
		zap.String("access_level", req.AccessLevel),
	)

	w.WriteHeader(http.StatusNoContent)
}

// DeleteProgramGrant handles DELETE /v1/access/programs/{programID}/grants/{userID}
func (h *AccessHandler) DeleteProgramGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID := chi.URLParam(r, "programID")
	userID := chi.URLParam(r, "userID")
	if programID == "" || userID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "programID and userID are required")
		return
	}

	if err := sess.RemoveUserFromProgram(ctx, userID, programID); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "program grant revoked",
		logger.Module("access"),
		logger.Action("revoke_program"),
		zap.String("subject_id", userID),
		zap.String("program_id", programID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// CreateProjectGrant handles POST /v1/access/programs/{programID}/projects/{projectID}/grants
func (h *AccessHandler) CreateProjectGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID := chi.URLParam(r, "programID")
	projectID := chi.URLParam(r, "projectID")
	if programID == "" || projectID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "programID and projectID are required")
		return
	}

	var req projectGrantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "userId is required")
		return
	}

	level := domain.ProjectAccessLevel(req.AccessLevel)
	if !level.IsValid() {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "accessLevel must be read, write, manage or admin")
		return
	}

	grant := access.ProjectGrant{
		UserID:      req.UserID,
		ProjectID:   projectID,
		ProgramID:   programID,
		AccessLevel: level,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := sess.AssignUserToProject(ctx, grant); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "project grant created",
		logger.Module("access"),
		logger.Action("grant_project"),
		zap.String("subject_id", req.UserID),
		zap.String("program_id", programID),
		zap.String("project_id", projectID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// DeleteProjectGrant handles DELETE /v1/access/programs/{programID}/projects/{projectID}/grants/{userID}
func (h *AccessHandler) DeleteProjectGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	projectID := chi.URLParam(r, "projectID")
	userID := chi.URLParam(r, "userID")
	if projectID == "" || userID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeMissingParameter, "projectID and userID are required")
		return
	}

	if err := sess.RemoveUserFromProject(ctx, userID, projectID); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "project grant revoked",
		logger.Module("access"),
		logger.Action("revoke_project"),
		zap.String("subject_id", userID),
		zap.String("project_id", projectID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// CheckAccess handles POST /v1/access/check
//
// The response is always 200: denial is expressed in the body, not the
// status, so callers can probe decisions without tripping error handling.
func (h *AccessHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req domain.AccessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.ResourceType.IsValid() {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "resourceType is not recognized")
		return
	}
	if !req.Action.IsValid() {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidParameter, "action is not recognized")
		return
	}

	writeJSON(w, http.StatusOK, sess.CheckAccess(req))
}
