package requestctx

import (
	"context"

	"paystream/internal/platform/address"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	callerKey    ctxKey = "caller"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithCaller stores the authenticated account address.
func WithCaller(ctx context.Context, caller address.Address) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func GetCaller(ctx context.Context) (address.Address, bool) {
	caller, ok := ctx.Value(callerKey).(address.Address)
	return caller, ok && !caller.IsZero()
}
