package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/api/shared"
	"github.com/planvox/planvox-api/internal/service/auth"
)

// AuthMiddleware guards routes behind service token authentication.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates middleware backed by the given token service.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate validates the bearer token from the Authorization header and
// stamps the caller ID into the request context for the handlers below it.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			respondTokenError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithCallerID(r.Context(), claims.CallerID)))
	})
}

// respondTokenError maps token validation failures to responses. Rejections
// log at WARN so probing stands out from ordinary request noise.
func respondTokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Token expired", err,
			shared.WithElevatedLogLevel())
	case errors.Is(err, auth.ErrTokenNotYetValid):
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Token not yet valid", err,
			shared.WithElevatedLogLevel())
	case errors.Is(err, auth.ErrInvalidToken):
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid token", err,
			shared.WithElevatedLogLevel())
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
	}
}

// GetCallerID extracts the authenticated caller ID from the request context.
func GetCallerID(r *http.Request) (uuid.UUID, bool) {
	return shared.CallerID(r.Context())
}
