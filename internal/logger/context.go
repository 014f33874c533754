package logger

import (
	"context"
	"log/slog"
)

// Ключи для context
type contextKey string

const (
	requestIDKey      contextKey = "request_id"
	operatorIDKey     contextKey = "operator_id"
	conversationIDKey contextKey = "conversation_id"
)

// WithRequestID добавляет request ID в context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithOperatorID добавляет operator ID в context
func WithOperatorID(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorIDKey, operatorID)
}

// WithConversationID добавляет conversation ID в context
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// GetRequestID извлекает request ID из context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetOperatorID извлекает operator ID из context
func GetOperatorID(ctx context.Context) string {
	if operatorID, ok := ctx.Value(operatorIDKey).(string); ok {
		return operatorID
	}
	return ""
}

// FromContext создает логгер с полями из context
// Автоматически добавляет request_id, operator_id, conversation_id если есть
func FromContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()

	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if operatorID := GetOperatorID(ctx); operatorID != "" {
		fields = append(fields, "operator_id", operatorID)
	}

	if conversationID, ok := ctx.Value(conversationIDKey).(string); ok && conversationID != "" {
		fields = append(fields, "conversation_id", conversationID)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// CtxInfo логирует info с контекстом
func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

// CtxWarn логирует warning с контекстом
func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// CtxError логирует error с контекстом
func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// CtxWithError логирует error с error объектом
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	fields := append([]any{"error", err.Error()}, args...)
	FromContext(ctx).Error(msg, fields...)
}
