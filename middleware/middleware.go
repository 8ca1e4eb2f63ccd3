package middleware

import (
	"context"
	"net/http"
	"strings"

	"bug-tracker/backend/bugs-service/logging"
	"bug-tracker/backend/bugs-service/models"
	"bug-tracker/backend/bugs-service/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const principalKey contextKey = "principal"

// JWTAuthMiddleware validates the bearer token and places the acting
// principal in the request context. Handlers never touch the token.
func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateToken(tokenStr)
		if err != nil {
			logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token provided for request to %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			logging.Logger.Warnf("Event ID: JWT_AUTH_BAD_SUBJECT, Description: Token for %s carries malformed user id %q", claims.Username, claims.UserID)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		role := models.Role(claims.Role)
		if !role.IsValid() {
			logging.Logger.Warnf("Event ID: JWT_AUTH_BAD_ROLE, Description: Token for %s carries unknown role %q", claims.Username, claims.Role)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		principal := models.Principal{
			ID:       userID,
			Username: claims.Username,
			Role:     role,
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the principal stored by JWTAuthMiddleware.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}
