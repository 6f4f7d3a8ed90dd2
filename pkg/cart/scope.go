package cart

import (
	"context"
	"strings"
)

// DefaultScope is used when a request does not name a cart scope.
const DefaultScope = "default"

type scopeKey struct{}

// WithScope returns a context carrying the cart scope for the request.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope stored in ctx, or DefaultScope.
func ScopeFrom(ctx context.Context) string {
	if s, ok := ctx.Value(scopeKey{}).(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return DefaultScope
}
