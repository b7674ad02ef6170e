package middleware

import (
	"context"
	"net/http"

	"unitrack-api/internal/domain"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/observability/logger"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const programIDKey contextKey = "program_id"

// ProgramMiddleware validates program access for program-scoped routes and
// prevents cross-program IDOR: the program id comes from the path, the
// decision comes from the caller's resolved access profile, never from
// request data.
func ProgramMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.GetLogger(ctx)

		// Extract program ID from URL path parameter
		programID := chi.URLParam(r, "programID")
		if programID == "" {
			log.Warn(ctx, "program_id not found in path",
				logger.Module("access"),
				logger.Action("program_guard"),
			)
			httperr.BadRequest400(w, ctx, httperr.ErrCodeInvalidProgramID, "program_id not found in path")
			return
		}

		sess, ok := GetSession(ctx)
		if !ok {
			log.Error(ctx, "session not found in context",
				logger.Module("access"),
				logger.Action("program_guard"),
			)
			httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidToken, "unauthorized")
			return
		}

		result := sess.CheckAccess(domain.AccessRequest{
			ResourceType: domain.ResourceTypeProgram,
			ResourceID:   &programID,
			Action:       domain.RequestActionRead,
			Context:      domain.AccessContext{ProgramID: &programID},
		})
		if !result.Granted {
			log.Warn(ctx, "program access denied",
				logger.Module("access"),
				logger.Action("program_guard"),
				zap.String("program_id", programID),
				zap.String("reason", result.Reason),
			)
			httperr.Forbidden403(w, ctx, httperr.ErrCodeAccessDenied, "program access denied")
			return
		}

		// Add program_id as span attribute for tracing
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String("program_id", programID))

		// Inject validated program_id into context for downstream handlers
		ctx = context.WithValue(ctx, programIDKey, programID)
		ctx = logger.SetProgramIDInContext(ctx, programID)

		log.Debug(ctx, "program access granted",
			logger.Module("access"),
			logger.Action("program_guard"),
			zap.String("scope", string(result.Scope)),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetProgramID retrieves the validated program ID from context
func GetProgramID(ctx context.Context) (string, bool) {
	programID, ok := ctx.Value(programIDKey).(string)
	return programID, ok
}
