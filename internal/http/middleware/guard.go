package middleware

import (
	"net/http"

	"unitrack-api/internal/domain"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/observability/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RequireAccess guards a route with an access check against the caller's
// resolved profile. Program and project context are taken from the request
// path when present, so the same guard works for scoped and generic routes.
// A denial renders 403 with the resolver's reason; it is never a 500.
func RequireAccess(resourceType domain.ResourceType, action domain.RequestAction) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.GetLogger(ctx)

			sess, ok := GetSession(ctx)
			if !ok {
				log.Error(ctx, "session not found in context",
					logger.Module("access"),
					logger.Action("route_guard"),
				)
				httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidToken, "unauthorized")
				return
			}

			req := domain.AccessRequest{
				ResourceType: resourceType,
				Action:       action,
			}
			if programID, ok := GetProgramID(ctx); ok {
				req.Context.ProgramID = &programID
			}
			if projectID := chi.URLParam(r, "projectID"); projectID != "" {
				req.Context.ProjectID = &projectID
				if resourceType == domain.ResourceTypeProject {
					req.ResourceID = &projectID
				}
			}

			result := sess.CheckAccess(req)
			if !result.Granted {
				log.Warn(ctx, "route access denied",
					logger.Module("access"),
					logger.Action("route_guard"),
					zap.String("resource_type", string(resourceType)),
					zap.String("requested_action", string(action)),
					zap.String("reason", result.Reason),
				)
				httperr.Forbidden403(w, ctx, httperr.ErrCodeAccessDenied, result.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
