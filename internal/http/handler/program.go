package handler

import (
	"net/http"

	"unitrack-api/internal/domain"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/http/middleware"
	"unitrack-api/internal/observability/logger"
	"unitrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProgramHandler struct {
	service *service.ProgramService
}

func NewProgramHandler(service *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{service: service}
}

// ListPrograms handles GET /v1/programs
func (h *ProgramHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programs := h.service.ListPrograms(sess)
	if programs == nil {
		programs = []domain.Program{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": programs})
}

// CreateProgram handles POST /v1/programs
func (h *ProgramHandler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req domain.CreateProgramRequest
	if !decodeBody(w, r, &req) {
		return
	}

	program, err := h.service.CreateProgram(ctx, sess, &req)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "program created",
		zap.String("program_id", program.ID),
		zap.String("code", program.Code),
	)

	writeJSON(w, http.StatusCreated, program)
}

// GetProgram handles GET /v1/programs/{programID}
func (h *ProgramHandler) GetProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)
	if programID == "" {
		programID = chi.URLParam(r, "programID")
	}

	program, err := h.service.GetProgram(ctx, sess, programID)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	writeJSON(w, http.StatusOK, program)
}

// UpdateProgram handles PATCH /v1/programs/{programID}
func (h *ProgramHandler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)

	var req domain.UpdateProgramRequest
	if !decodeBody(w, r, &req) {
		return
	}

	program, err := h.service.UpdateProgram(ctx, sess, programID, &req)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "program updated",
		zap.String("program_id", programID),
	)

	writeJSON(w, http.StatusOK, program)
}

// ArchiveProgram handles POST /v1/programs/{programID}/archive
func (h *ProgramHandler) ArchiveProgram(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)
	if programID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProgramID, "programID is required")
		return
	}

	if err := h.service.ArchiveProgram(ctx, sess, programID); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "program archived",
		zap.String("program_id", programID),
	)

	w.WriteHeader(http.StatusNoContent)
}
