// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 初始化全局日志器。level 支持 debug/info/warn/error；
// LOG_PRETTY=true 时输出适合本地调试的控制台格式。
func Init(serviceName, level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout)
	if os.Getenv("LOG_PRETTY") == "true" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})
	}

	base = logger.Level(lvl).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// L 返回全局日志器。
func L() *zerolog.Logger {
	return &base
}

// Ctx 返回一个绑定了当前追踪上下文的日志器。
// 如果 ctx 中存在有效的 Span，则自动附加 trace_id 字段，便于日志与链路关联。
func Ctx(ctx context.Context) *zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return &base
	}
	l := base.With().Str("trace_id", span.SpanContext().TraceID().String()).Logger()
	return &l
}
