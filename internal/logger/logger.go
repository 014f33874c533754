package logger

import (
	"log/slog"
	"os"
	"time"
)

var log *slog.Logger

// Init инициализирует глобальный логгер
// env: "development" или "production"
func Init(env string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Production: JSON формат для парсинга
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	if log == nil {
		// Fallback если Init не вызван
		Init("development")
	}
	return log
}

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует fatal ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// With создает новый логгер с дополнительными полями
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// WithError создает логгер с полем error
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}

// ============================================
// Специализированные логгеры
// ============================================

// HTTPLog логирует HTTP запрос
func HTTPLog(method, path string, status int, duration time.Duration, size int) {
	GetLogger().Info("http request",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size_bytes", size,
	)
}

// StoreLog логирует операцию с удаленным хранилищем
func StoreLog(operation, table string, duration time.Duration, err error) {
	fields := []any{
		"operation", operation,
		"table", table,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("store operation failed", fields...)
	} else {
		GetLogger().Debug("store operation", fields...)
	}
}

// FeedLog логирует событие realtime-канала
func FeedLog(channel, event string, err error) {
	fields := []any{
		"channel", channel,
		"event", event,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("feed event failed", fields...)
	} else {
		GetLogger().Debug("feed event", fields...)
	}
}
