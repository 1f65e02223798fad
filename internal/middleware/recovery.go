package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"slidegraph/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response. When the
// handler had already started its response, typically an event stream, the
// status can no longer change and the connection is aborted instead.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				committed := sw.status != 0
				logger.Error("panic recovered",
					"error", rec,
					"path", r.URL.Path,
					"method", r.Method,
					"committed", committed,
					"stack", string(debug.Stack()),
				)

				if committed {
					// net/http closes the connection without logging again
					panic(http.ErrAbortHandler)
				}
				httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
