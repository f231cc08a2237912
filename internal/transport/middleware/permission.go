package middleware

import (
	"log/slog"
	"net/http"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

// RequireRoles lets the request through when the caller holds any of the roles.
func RequireRoles(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	h := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := errors.UserFromContext(r.Context())
			if !ok {
				h.HandleServiceError(w, errors.ErrUnauthorizedAccess)
				return
			}

			if !user.HasRole(roles...) {
				h.Logger.Warn("access denied: user lacks required role",
					"user_id", user.ID,
					"required_roles", roles,
					"user_role", user.Role)
				h.HandleServiceError(w, errors.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
