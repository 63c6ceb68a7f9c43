package logging

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type requestCtxKey struct{}
type chatCtxKey struct{}
type documentCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := ChatIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("chat.id", id))
	}
	if id, ok := DocumentIDFromContext(ctx); ok {
		fields = append(fields, zap.String("document.id", strconv.FormatInt(id, 10)))
	}
	return fields
}

// WithRequestID tags ctx with a request id. Empty ids are ignored.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithChatID tags ctx with the chat the request belongs to.
func WithChatID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, chatCtxKey{}, id)
}

// ChatIDFromContext returns the chat id or "".
func ChatIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(chatCtxKey{}).(string)
	return id
}

// WithDocumentID tags ctx with the document being indexed or summarized.
func WithDocumentID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, documentCtxKey{}, id)
}

// DocumentIDFromContext returns the document id, if set.
func DocumentIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(documentCtxKey{}).(int64)
	return id, ok
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Nop()
}
