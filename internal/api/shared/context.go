package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// ContextKey is the key type for request-scoped values.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated user's uuid.UUID, placed
	// there by the authentication middleware.
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey holds the request's trace ID, used to correlate log
	// lines and error responses.
	TraceIDKey ContextKey = "traceID"
)

// traceIDBytes is the trace ID entropy size; IDs render as 32 hex chars.
const traceIDBytes = 16

// SetTraceID returns a child context carrying a fresh trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// newTraceID generates a random trace ID. When the system random source
// fails it falls back to a timestamp-derived ID rather than a static value,
// so correlation still works even if uniqueness is weaker.
func newTraceID() string {
	b := make([]byte, traceIDBytes)
	if _, err := rand.Read(b); err != nil {
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(b[8:], uint64(time.Now().Unix()))
	}
	return hex.EncodeToString(b)
}
