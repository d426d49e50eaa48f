package httpx

import "context"

type requestIDCtxKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

func RequestIDFromCtx(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return s
	}
	return ""
}
