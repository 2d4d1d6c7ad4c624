package auth

import "context"

type contextKey string

const (
	contextKeyUserID   contextKey = "auth.user_id"
	contextKeyFullName contextKey = "auth.fullname"
)

// WithIdentity stores the authenticated user's details in context.
func WithIdentity(ctx context.Context, userID int64, fullName string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID, userID)
	ctx = context.WithValue(ctx, contextKeyFullName, fullName)
	return ctx
}

// UserIDFromContext extracts the user id from context.
func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(contextKeyUserID).(int64); ok {
		return id
	}
	return 0
}

// FullNameFromContext extracts the user's full name from context.
func FullNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if name, ok := ctx.Value(contextKeyFullName).(string); ok {
		return name
	}
	return ""
}
