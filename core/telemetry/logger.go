package telemetry

import (
	"context"
	"log/slog"
)

// Logger 引擎内部使用的日志接口 默认基于标准库 slog
// 引擎自身只在 handler 失败、sweep 异常等少数路径打日志 不会刷屏
type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

func SlogLogger() Logger {
	return &slogLogger{}
}

var _ Logger = (*slogLogger)(nil)

type slogLogger struct {
}

func (*slogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	slog.DebugContext(ctx, msg, args...)
}

func (*slogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	slog.InfoContext(ctx, msg, args...)
}

func (*slogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	slog.WarnContext(ctx, msg, args...)
}

func (*slogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	slog.ErrorContext(ctx, msg, args...)
}
