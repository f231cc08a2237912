package middleware

import (
	"net/http"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/pkg/logger"
)

// UserContext tags the request logger with the authenticated caller.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := errors.UserFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "userID", user.ID, "userRole", user.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
