package routes

import (
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/gate"
	"github.com/BradenHooton/warden/internal/middleware"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the settings of the global middleware stack.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	IP             *pkghttp.IPConfig
	Gate           gate.MiddlewareConfig
	LoginBurst     int
	Logger         *slog.Logger
}

// NewRouter builds the application router behind the global middleware
// stack. Client addresses come from pkghttp.ExtractClientIP, which only
// reads forwarding headers from trusted proxies, so nothing in the stack
// may rewrite RemoteAddr.
func NewRouter(g *gate.Gate, h Handlers, cfg RouterConfig) *chi.Mux {
	cfg.Gate.IP = cfg.IP

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.Recoverer(cfg.Logger))
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.SecureLogger(cfg.Logger, cfg.IP))
	router.Use(chimiddleware.Timeout(60 * time.Second))
	router.Use(g.Middleware(cfg.Gate))

	RegisterRoutes(router, h, middleware.LoginGuardConfig{
		RequestsPerMinute: cfg.LoginBurst,
		IP:                cfg.IP,
	})
	return router
}
