package context

import (
	"context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	messIDKey
	jobRunIDKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

// WithMessID tags the context with the mess a request or job operates on.
func WithMessID(ctx context.Context, messID string) context.Context {
	return withString(ctx, messIDKey, messID)
}

func MessIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, messIDKey)
}

func WithJobRunID(ctx context.Context, runID string) context.Context {
	return withString(ctx, jobRunIDKey, runID)
}

func JobRunIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, jobRunIDKey)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	value = strings.TrimSpace(value)
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
