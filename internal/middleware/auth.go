package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/apperr"
	"github.com/Luffy852/dnd5e-character-manager/internal/auth"
	"github.com/Luffy852/dnd5e-character-manager/internal/respond"
)

// RequireAuth is middleware that validates the session cookie and
// injects the user id into the request context.
func RequireAuth(sessions auth.Sessions, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				respond.Error(w, r, logger, apperr.Auth("not authenticated"))
				return
			}

			userID, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}
			if userID == 0 {
				respond.Error(w, r, logger, apperr.Auth("session expired"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}
