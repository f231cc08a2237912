package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dulmini1119/tms-sub001/pkg/logger"
)

// TraceID propagates X-Trace-ID (generating one when absent) into the logger context and the response.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
