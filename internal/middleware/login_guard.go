package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/httprate"
)

// LoginGuardConfig caps login attempts per client address on top of the
// gate's global budget.
type LoginGuardConfig struct {
	RequestsPerMinute int
	IP                *pkghttp.IPConfig
}

// LoginGuard rate limits a route by the same client address the gate uses.
func LoginGuard(config LoginGuardConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IP), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w)
		}),
	)
}
