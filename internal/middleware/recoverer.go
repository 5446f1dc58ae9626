package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
)

// Recoverer binds a Sentry hub to each request and turns panics into a
// reported 500 server_error.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			hub.Scope().SetTag("request_id", middleware.GetReqID(r.Context()))
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetExtra("stack", string(debug.Stack()))
					hub.RecoverWithContext(ctx, rec)
				})

				logger.Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
				)
				pkghttp.WriteInternalError(w)
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
