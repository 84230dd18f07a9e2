package ledger

import "context"

type correlationIDKey struct{}

// ContextWithCorrelationID returns a context carrying the correlation ID so
// entries written downstream can record which request produced them
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// CorrelationIDFromContext returns the correlation ID carried by the context,
// or empty when none was set
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
