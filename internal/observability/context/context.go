package context

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "obs.request_id"
	buyerUIDKey  ctxKey = "obs.buyer_uid"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithBuyerUID tags the request with the buyer it acts for.
func WithBuyerUID(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, buyerUIDKey, uid)
}

func BuyerUIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(buyerUIDKey).(string)
	return value
}
