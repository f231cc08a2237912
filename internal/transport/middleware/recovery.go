package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/dulmini1119/tms-sub001/internal"
	"github.com/dulmini1119/tms-sub001/internal/transport"
	"github.com/dulmini1119/tms-sub001/pkg/logger"
)

// RecoveryMiddleware turns a handler panic into a generic 500. The log line carries
// the request's trace id and, once authenticated, the caller.
func RecoveryMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	h := transport.NewBaseHandler(base)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				lg, ok := logger.Lookup(r.Context())
				if !ok {
					lg = base
				}
				attrs := []any{
					"panic", fmt.Sprint(rec),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				}
				if user, ok := errors.UserFromContext(r.Context()); ok {
					attrs = append(attrs, "user_id", user.ID)
				}
				lg.Error("panic recovered", attrs...)

				h.HandleServiceError(w, errors.NewInternalError("handler panicked", fmt.Errorf("%v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
