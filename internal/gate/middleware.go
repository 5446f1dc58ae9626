package gate

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/ratelimit"
	"github.com/BradenHooton/warden/internal/session"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/BradenHooton/warden/pkg/logger"
)

// MiddlewareConfig configures the request-facing side of the gate.
type MiddlewareConfig struct {
	Tokens         *auth.TokenManager
	Cookie         auth.CookieConfig
	IP             *pkghttp.IPConfig
	ExemptPrefixes []string // paths that bypass maintenance mode
}

// DefaultExemptPrefixes keep admins able to switch maintenance off.
var DefaultExemptPrefixes = []string{"/admin", "/health"}

// Middleware runs, in order: the maintenance short-circuit, the rate
// limiter, then the session touch-check. Rate limiting comes before any
// per-user lookup so abusive anonymous traffic stays cheap.
func (g *Gate) Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.ExemptPrefixes == nil {
		cfg.ExemptPrefixes = DefaultExemptPrefixes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Maintenance() && !exempt(r.URL.Path, cfg.ExemptPrefixes) {
				pkghttp.WriteMaintenance(w)
				return
			}

			key := pkghttp.ExtractClientIP(r, cfg.IP)
			d := g.IsRequestAllowed(r.Context(), key)
			g.writeRateHeaders(w, d)
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
				pkghttp.WriteTooManyRequests(w)
				return
			}

			token, err := auth.GetSessionCookie(r, cfg.Cookie.Name)
			if err != nil || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := cfg.Tokens.Validate(token)
			if err != nil {
				auth.ClearSessionCookie(w, cfg.Cookie)
				next.ServeHTTP(w, r)
				return
			}

			sd, err := g.IsSessionValid(r.Context(), claims.ID)
			if err != nil {
				logger.ReportError(r.Context(), g.logger, "session touch-check failed", err,
					slog.String("path", r.URL.Path))
				pkghttp.WriteInternalError(w)
				return
			}

			switch {
			case sd.Valid && sd.Record.UserID == claims.UserID:
				next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sd.Record)))
			case sd.Reason == session.ReasonBanned:
				auth.ClearSessionCookie(w, cfg.Cookie)
				pkghttp.WriteUserBanned(w)
			case sd.Reason == session.ReasonExpired:
				auth.ClearSessionCookie(w, cfg.Cookie)
				pkghttp.WriteSessionExpired(w)
			default:
				auth.ClearSessionCookie(w, cfg.Cookie)
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (g *Gate) writeRateHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit == 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(g.clock.Now().Add(d.ResetAfter).UnixMilli(), 10))
}

func exempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
