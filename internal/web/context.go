package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/gridkit/internal/core"
)

// withRequestMetadata adds the client IP to ctx for import logs.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithIPAddress(ctx, clientIP(r))
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
