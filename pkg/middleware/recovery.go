package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "tourdesk/pkg/errors"
	httputil "tourdesk/pkg/http"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/metrics"
)

// Recovery answers 500 when a handler panics. http.ErrAbortHandler is
// re-raised so net/http can drop the connection as intended.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				metrics.HTTPPanics.Inc()
				log.Error("Panic recovered",
					"request_id", RequestID(r.Context()),
					"panic", fmt.Sprint(p),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				_ = httputil.WriteError(w, apperrors.Internal("Internal server error", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
