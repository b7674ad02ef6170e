package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"unitrack-api/internal/access"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/http/middleware"
	"unitrack-api/internal/observability/logger"
	"unitrack-api/internal/repo"
	"unitrack-api/internal/service"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// requireSession pulls the access session injected by the middleware chain.
// A missing session on a guarded route is a wiring bug, reported as 401.
func requireSession(w http.ResponseWriter, r *http.Request) (*access.Session, bool) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		httperr.Unauthorized401(w, r.Context(), httperr.ErrCodeInvalidToken, "no active session")
		return nil, false
	}
	return sess, true
}

// decodeBody decodes and validates a JSON request body. Validate is called
// when the target implements it, so handlers never ship unvalidated DTOs to
// the service layer.
func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	ctx := r.Context()

	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidFormat, "request body must be valid JSON")
		return false
	}

	if v, ok := target.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				fields := make(map[string]string, len(verrs))
				for _, fe := range verrs {
					fields[fe.Field()] = fe.Tag()
				}
				httperr.BadRequest400WithFields(w, ctx, httperr.ErrCodeValidationError, "request validation failed", fields)
				return false
			}
			httperr.BadRequest400(w, ctx, httperr.ErrCodeValidationError, err.Error())
			return false
		}
	}

	return true
}

// handleServiceError maps service and access errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, ctx context.Context, log *logger.Logger, err error) {
	logger.SetRootError(ctx, err)

	if permErr, ok := access.IsPermissionError(err); ok {
		httperr.Forbidden403(w, ctx, httperr.ErrCodeAccessDenied, permErr.Reason)
		return
	}

	switch {
	case errors.Is(err, access.ErrNotAuthenticated):
		httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidToken, "session is not authenticated")
	case errors.Is(err, service.ErrProgramNotFound):
		httperr.WriteError(w, ctx, http.StatusNotFound, httperr.ErrCodeNotFound, "program not found")
	case errors.Is(err, service.ErrProjectNotFound):
		httperr.WriteError(w, ctx, http.StatusNotFound, httperr.ErrCodeNotFound, "project not found")
	case errors.Is(err, repo.ErrGrantNotFound):
		httperr.WriteError(w, ctx, http.StatusNotFound, httperr.ErrCodeNotFound, "grant not found")
	case errors.Is(err, repo.ErrRequestNotFound):
		httperr.WriteError(w, ctx, http.StatusNotFound, httperr.ErrCodeNotFound, "access request not found")
	case errors.Is(err, service.ErrProgramCodeExists):
		httperr.WriteError(w, ctx, http.StatusConflict, httperr.ErrCodeConflict, "program code already in use")
	case errors.Is(err, service.ErrProjectCodeExists):
		httperr.WriteError(w, ctx, http.StatusConflict, httperr.ErrCodeConflict, "project code already in use in this program")
	default:
		log.Error(ctx, "unexpected service error", zap.Error(err))
		httperr.InternalError(w, ctx)
	}
}
