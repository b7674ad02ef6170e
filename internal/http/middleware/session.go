package middleware

import (
	"context"
	"net/http"

	"unitrack-api/internal/access"
	"unitrack-api/internal/auth"
	"unitrack-api/internal/http/httperr"
	"unitrack-api/internal/observability/logger"

	"go.uber.org/zap"
)

type contextKey string

const sessionContextKey contextKey = "access_session"

// SessionMiddleware resolves the caller's access session from the session
// manager and injects it into the request context. Runs after
// JWTAuthMiddleware: the principal must already be in the context.
func SessionMiddleware(manager *access.Manager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authCtx, ok := auth.GetAuthContext(ctx)
			if !ok {
				log.Error(ctx, "auth context not found",
					logger.Module("access"),
					logger.Action("resolve_session"),
				)
				httperr.Unauthorized401(w, ctx, httperr.ErrCodeInvalidToken, "unauthorized")
				return
			}

			sess, err := manager.Session(ctx, authCtx.UserID)
			if err != nil {
				log.Warn(ctx, "session resolution failed",
					logger.Module("access"),
					logger.Action("resolve_session"),
					zap.Error(err),
				)
				httperr.Forbidden403(w, ctx, httperr.ErrCodeAccessDenied, "access denied")
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the caller's access session from context
func GetSession(ctx context.Context) (*access.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*access.Session)
	return sess, ok
}
