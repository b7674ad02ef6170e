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

type ProjectHandler struct {
	service *service.ProjectService
}

func NewProjectHandler(service *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ListProjects handles GET /v1/programs/{programID}/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)

	projects, err := h.service.ListProjects(ctx, sess, programID)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}
	if projects == nil {
		projects = []domain.Project{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": projects})
}

// CreateProject handles POST /v1/programs/{programID}/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)

	var req domain.CreateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := h.service.CreateProject(ctx, sess, programID, &req)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "project created",
		zap.String("program_id", programID),
		zap.String("project_id", project.ID),
	)

	writeJSON(w, http.StatusCreated, project)
}

// GetProject handles GET /v1/programs/{programID}/projects/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProjectID, "projectID is required")
		return
	}

	project, err := h.service.GetProject(ctx, sess, programID, projectID)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

// UpdateProject handles PATCH /v1/programs/{programID}/projects/{projectID}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProjectID, "projectID is required")
		return
	}

	var req domain.UpdateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := h.service.UpdateProject(ctx, sess, programID, projectID, &req)
	if err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "project updated",
		zap.String("program_id", programID),
		zap.String("project_id", projectID),
	)

	writeJSON(w, http.StatusOK, project)
}

// DeleteProject handles DELETE /v1/programs/{programID}/projects/{projectID}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.GetLogger(ctx)

	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	programID, _ := middleware.GetProgramID(ctx)
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProjectID, "projectID is required")
		return
	}

	if err := h.service.DeleteProject(ctx, sess, programID, projectID); err != nil {
		handleServiceError(w, ctx, log, err)
		return
	}

	log.Info(ctx, "project deleted",
		zap.String("program_id", programID),
		zap.String("project_id", projectID),
	)

	w.WriteHeader(http.StatusNoContent)
}
