package core

import "context"

type contextKey string

const (
	ctxKeyRole      contextKey = "role"
	ctxKeyIPAddress contextKey = "ip"
)

// ContextWithRole records the caller's role for permission checks.
func ContextWithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

// RoleFromContext returns the caller's role, or "" when unset.
func RoleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRole).(string); ok {
		return v
	}
	return ""
}

// ContextWithIPAddress records the client IP for import logs.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// IPAddressFromContext returns the client IP, or "" when unset.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
