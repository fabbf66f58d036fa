package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/petalsync/internal/server/handlers"
	"github.com/iudanet/petalsync/internal/server/jwt"
	"github.com/iudanet/petalsync/pkg/api"
)

// TokenValidator проверяет bearer токен
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// AuthMiddleware создает middleware для проверки bearer токена.
// validator == nil отключает проверку.
func AuthMiddleware(logger *slog.Logger, validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", "path", r.URL.Path)
				unauthorized(w, "missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				logger.Warn("Invalid Authorization header format")
				unauthorized(w, "invalid token format")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				unauthorized(w, "invalid token")
				return
			}

			logger.Debug("Client authenticated", "subject", claims.Subject, "role", claims.Role)
			ctx := handlers.WithClient(r.Context(), claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized", Message: msg})
}
