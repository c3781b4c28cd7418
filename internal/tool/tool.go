// Package tool defines the capabilities the intake agent may invoke.
package tool

import "context"

// Tool is the interface every agent capability must implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// contextKey is an unexported type for context keys in this package.
type contextKey string

const originKey = contextKey("intake_origin")

// Origin identifies where the current turn came in, so capabilities can tag
// what they write.
type Origin struct {
	Channel   string
	SessionID string
}

// WithOrigin returns a context carrying the turn's origin.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey, o)
}

// OriginFromContext returns the turn's origin, if any.
func OriginFromContext(ctx context.Context) Origin {
	if o, ok := ctx.Value(originKey).(Origin); ok {
		return o
	}
	return Origin{}
}
