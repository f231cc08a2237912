package auth

import (
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/transport"
)

type Authenticator struct {
	*transport.BaseHandler
	validator  TokenValidator
	cookieName string
}

func NewAuthenticator(validator TokenValidator, cookieName string, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		BaseHandler: transport.NewBaseHandler(logger),
		validator:   validator,
		cookieName:  cookieName,
	}
}

// Middleware rejects requests without a valid access token (cookie first, then Bearer header).
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := a.tokenFromRequest(r)
		if token == "" {
			a.HandleServiceError(w, errors.ErrUnauthorizedAccess)
			return
		}

		claims, err := a.validator.ValidateToken(token)
		if err != nil {
			a.Logger.Warn("rejected access token", "path", r.URL.Path, "error", err)
			a.HandleServiceError(w, err)
			return
		}

		ctx := errors.ContextWithUser(r.Context(), claims.CurrentUser())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) tokenFromRequest(r *http.Request) string {
	if a.cookieName != "" {
		if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return strings.TrimSpace(a.ExtractTokenFromHeader(r))
}
