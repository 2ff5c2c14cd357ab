package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type contextKey string

const userKey contextKey = "user"

// Middleware attaches the caller's identity to the request context when a
// bearer token is present. Requests without a usable token continue as
// anonymous; nothing is rejected.
func Middleware(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := ExtractTokenFromRequest(r)
			if err == nil {
				var user models.User
				user, err = ExtractUserFromJWT(token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
					return
				}
			}

			l.Debug("AUTH", fmt.Sprintf("Ignoring unusable credentials on %s %s: %v", r.Method, r.URL.Path, err))
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// User returns the identity attached to ctx, or the anonymous user.
func User(ctx context.Context) models.User {
	if u, ok := ctx.Value(userKey).(models.User); ok {
		return u
	}
	return models.User{}
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	return User(ctx).ID
}
