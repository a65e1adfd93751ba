// Package audit records auth lifecycle events (login, logout, timeout,
// recovery) as structured log entries so operators can reconstruct what the
// client did and when.
package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/SushanParlapally/trawells-authcore/internal/obs"
)

type ctxKey string

const sessionIDKey ctxKey = "audit_session_id"

// WithSessionID attaches the session identifier to the context for audit
// logging.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// sessionIDFromContext extracts the audit session id from context if present.
func sessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with the session context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if sid := sessionIDFromContext(ctx); sid != "" {
		attrs = append(attrs, zap.String("session_id", sid))
	}
	for k, v := range fields {
		attrs = append(attrs, zap.Any(k, v))
	}
	obs.Logger().Info(event, attrs...)
	return nil
}
