package auth

import (
	"context"
	"net/http"
	"strings"

	"unitrack-api/internal/observability/logger"

	"go.uber.org/zap"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// AuthContext is the authenticated principal extracted from a validated
// token. Handlers read it from the request context; it never carries the
// raw token.
type AuthContext struct {
	UserID      string
	DisplayName string
	Issuer      string
	SystemAdmin bool
}

// JWTAuthMiddleware validates JWT tokens and injects the authenticated
// principal into the request context.
func JWTAuthMiddleware(resolver *KeyResolver, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn(ctx, "missing authorization header",
					logger.Module("auth"),
					logger.Action("authenticate"),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			// Check Bearer format
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn(ctx, "invalid authorization header format",
					logger.Module("auth"),
					logger.Action("authenticate"),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			claims, err := resolver.Resolve(ctx, tokenString)
			if err != nil {
				log.Warn(ctx, "token validation failed",
					logger.Module("auth"),
					logger.Action("authenticate"),
					zap.Error(err),
					zap.String("masked_token", maskToken(tokenString)),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			authCtx := &AuthContext{
				UserID:      claims.UserID(),
				DisplayName: claims.DisplayName,
				Issuer:      claims.Issuer,
				SystemAdmin: claims.SystemAdmin,
			}

			ctx = context.WithValue(ctx, authContextKey, authCtx)
			ctx = logger.SetUserIDInContext(ctx, authCtx.UserID)

			log.Debug(ctx, "authenticated request",
				logger.Module("auth"),
				logger.Action("authenticate"),
				zap.String("issuer", claims.Issuer),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthContext retrieves the authenticated principal from context
func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey).(*AuthContext)
	return authCtx, ok
}
