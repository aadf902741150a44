package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// ContextKey namespaces request context values.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated user's int64 id.
	UserIDContextKey ContextKey = "userID"

	// RoleContextKey holds the authenticated user's domain.Role.
	RoleContextKey ContextKey = "role"

	// TraceIDKey holds the request's trace id.
	TraceIDKey ContextKey = "traceID"
)

// SetTraceID adds a fresh 32-character trace id to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// GetTraceID retrieves the trace ID from the context, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithIdentity stores the authenticated caller in the context.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, id.UserID)
	return context.WithValue(ctx, RoleContextKey, id.Role)
}

// IdentityFromContext returns the authenticated caller. It reports false
// when the request did not pass through the auth middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int64)
	if !ok || userID <= 0 {
		return domain.Identity{}, false
	}
	role, ok := ctx.Value(RoleContextKey).(domain.Role)
	if !ok || !role.Valid() {
		return domain.Identity{}, false
	}
	return domain.Identity{UserID: userID, Role: role}, true
}
