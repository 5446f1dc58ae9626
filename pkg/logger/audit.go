package logger

import (
	"context"
	"log/slog"
)

// AuditEvent is one security-relevant action.
type AuditEvent struct {
	EventType string
	UserID    string
	ActorID   string // who performed the action, when not the user
	IPAddress string
	Success   bool
	Reason    string
	Metadata  map[string]string
}

// AuditLogger writes audit events through slog under the "audit" message.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Log records event; failures are logged at warn level.
func (al *AuditLogger) Log(ctx context.Context, auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAuthAttempt records a login outcome. login is masked before logging.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, login string, event AuditEvent) {
	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}
	event.Metadata["login"] = MaskLogin(login)
	al.Log(ctx, "auth", event)
}

// LogAdminAction records a ban, unban or maintenance toggle.
func (al *AuditLogger) LogAdminAction(ctx context.Context, eventType, actorID, userID, reason string) {
	al.Log(ctx, "admin", AuditEvent{
		EventType: eventType,
		ActorID:   actorID,
		UserID:    userID,
		Reason:    reason,
		Success:   true,
	})
}
