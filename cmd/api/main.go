package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/clock"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/gate"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/lockout"
	"github.com/BradenHooton/warden/internal/ratelimit"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/session"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("session_backend", cfg.Session.Backend),
		slog.String("lockout_backend", cfg.Lockout.Backend),
	)

	if err := pkglogger.InitSentry(cfg.Sentry.DSN, cfg.Server.Env, cfg.Sentry.Release); err != nil {
		logger.Warn("sentry disabled", slog.Any("error", err))
	}
	defer pkglogger.FlushSentry()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Shared state backend
	redisClient := database.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()

	clk := clock.Real{}
	var sweepables []background.Sweepable

	// Rate limiter: Redis first, process-local insurance while Redis is down
	limiterConfig := ratelimit.Config{
		Points:        cfg.Limiter.Points,
		Duration:      cfg.Limiter.Duration,
		BlockDuration: cfg.Limiter.BlockDuration,
	}
	insurance := ratelimit.NewMemoryLimiter(limiterConfig, clk)
	sweepables = append(sweepables, insurance)
	limiter := ratelimit.NewInsuredLimiter(
		ratelimit.NewRedisLimiter(redisClient, "limiter", limiterConfig, clk),
		insurance,
		ratelimit.InsuredConfig{Timeout: cfg.Limiter.BackendTimeout, RetryInterval: cfg.Limiter.BackendRetry},
		clk,
		logger,
	)

	// Login lockout
	lockoutConfig := lockout.Config{
		FailureThreshold: cfg.Lockout.FailureThreshold,
		LockDuration:     cfg.Lockout.Duration,
		Retention:        cfg.Lockout.Retention,
	}
	var tracker lockout.Tracker
	if cfg.Lockout.Backend == "redis" {
		tracker = lockout.NewRedisTracker(redisClient, "lockout", lockoutConfig, clk)
	} else {
		memTracker := lockout.NewMemoryTracker(lockoutConfig, clk)
		sweepables = append(sweepables, memTracker)
		tracker = memTracker
	}

	// Sessions
	var (
		store session.Store
		bans  session.BanList
	)
	if cfg.Session.Backend == "redis" {
		store = session.NewRedisStore(redisClient, "sess", cfg.Session.IdleTimeout)
		bans = session.NewRedisBanList(redisClient, "banned_users")
	} else {
		memStore := session.NewMemoryStore(cfg.Session.IdleTimeout, clk)
		sweepables = append(sweepables, memStore)
		store = memStore
		bans = session.NewMemoryBanList()
	}
	sweeper := session.NewSweeper(store, cfg.Session.SweepBuffer, 30*time.Second, logger)
	defer sweeper.Close()

	sessionManager := session.NewManager(store, bans, sweeper,
		session.Config{AbsoluteTimeout: cfg.Session.AbsoluteTimeout}, clk, logger)

	requestGate := gate.New(limiter, tracker, sessionManager, clk, logger)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(logger, cfg.Server.CleanupInterval, clk, sweepables...)

	// Auth primitives
	hasher := pkgauth.NewHasher(cfg.Server.BcryptCost)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   250 * time.Millisecond,
		RandomDelay: 100 * time.Millisecond,
	})
	tokenManager := auth.NewTokenManager(cfg.Session.Secret, clk)
	cookieConfig := auth.CookieConfig{
		Name:     cfg.Session.Name,
		Secure:   cfg.Server.IsProduction(),
		SameSite: "strict",
		MaxAge:   cfg.Session.AbsoluteTimeout,
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(db)
	userService := services.NewUserService(userRepo, hasher, logger)
	authService := services.NewAuthService(userRepo, requestGate, hasher, timingDelay, logger, auditLogger)
	adminService := services.NewAdminService(userRepo, requestGate, logger, auditLogger)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.BootstrapAdmin(ctx, cfg.Admin.Email, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Initialize handlers
	h := routes.Handlers{
		Auth:  handlers.NewAuthHandler(authService, tokenManager, cookieConfig, ipConfig, logger),
		Admin: handlers.NewAdminHandler(adminService, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"database": db.HealthCheck,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		}, logger),
	}

	// Setup router
	router := routes.NewRouter(requestGate, h, routes.RouterConfig{
		Env:            cfg.Server.Env,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IP:             ipConfig,
		Gate:           gate.MiddlewareConfig{Tokens: tokenManager, Cookie: cookieConfig},
		LoginBurst:     cfg.Limiter.LoginBurst,
		Logger:         logger,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	cleanupCancel()
	cleanupManager.Stop()

	logger.Info("server stopped gracefully")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
