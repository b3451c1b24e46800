package core

import "context"

type contextKey string

const (
	ctxKeyActor     contextKey = "actor"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithActor records the username performing the request for logging.
func ContextWithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, username)
}

// ContextWithIPAddress adds the client IP address to context for logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// GetIPAddressFromContext extracts the client IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

func actorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok {
		return v
	}
	return ""
}
