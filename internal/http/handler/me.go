package handler

import (
	"net/http"

	"unitrack-api/internal/domain"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/observability/logger"

	"go.uber.org/zap"
)

// MeHandler serves the caller's own session view: resolved profile,
// available programs and the current program selection.
type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

type meResponse struct {
	User              *domain.UserProfile `json:"user"`
	AvailablePrograms []domain.Program    `json:"availablePrograms"`
	CurrentProgramID  string              `json:"currentProgramId,omitempty"`
}

type selectProgramRequest struct {
	ProgramID string `json:"programId"`
}

// GetMe handles GET /v1/me
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	user, err := sess.User()
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:              user,
		AvailablePrograms: sess.AvailablePrograms(),
		CurrentProgramID:  sess.CurrentProgramID(),
	})
}

// SelectProgram handles POST /v1/me/program
//
// Switching to a program the caller cannot access leaves the selection
// unchanged and reports 403; the previous selection stays valid.
func (h *MeHandler) SelectProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req selectProgramRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProgramID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProgramID, "programId is required")
		return
	}

	sess.SwitchProgram(ctx, req.ProgramID)
	if sess.CurrentProgramID() != req.ProgramID {
		httperr.Forbidden403(w, ctx, httperr.ErrCodeAccessDenied, "no access to the requested program")
		return
	}

	log.Info(ctx, "program selected",
		zap.String("program_id", req.ProgramID),
	)

	writeJSON(w, http.StatusOK, map[string]string{"currentProgramId": req.ProgramID})
}
