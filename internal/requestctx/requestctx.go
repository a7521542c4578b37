// Package requestctx carries per-request metadata below the HTTP layer so
// domain services can stamp audit records without importing middleware.
package requestctx

import "context"

type metaKey struct{}

// Meta is what the request middleware knows about the caller's connection.
type Meta struct {
	RequestID string
	ClientIP  string
}

func With(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

func From(ctx context.Context) Meta {
	meta, _ := ctx.Value(metaKey{}).(Meta)
	return meta
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	meta := From(ctx)
	meta.RequestID = requestID
	return With(ctx, meta)
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	meta := From(ctx)
	meta.ClientIP = ip
	return With(ctx, meta)
}

func GetRequestID(ctx context.Context) string {
	return From(ctx).RequestID
}

func GetClientIP(ctx context.Context) string {
	return From(ctx).ClientIP
}
