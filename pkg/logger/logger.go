// Package logger 基于 slog 的结构化日志，context 中的链路与会话标识自动带入每条记录
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// ContextKey 日志字段在 context 中的键
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RequestIDKey ContextKey = "request_id"
	SessionIDKey ContextKey = "session_id"
	StageKey     ContextKey = "stage"
)

var contextKeys = [...]ContextKey{TraceIDKey, SpanIDKey, RequestIDKey, SessionIDKey, StageKey}

var current atomic.Pointer[slog.Logger]

// Init 输出到 stdout；format 为 json 时使用 JSON，其余为文本
func Init(level string, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter 指定输出，测试中用于捕获日志
func InitWithWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: true}

	var base slog.Handler
	if strings.EqualFold(format, "json") {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}

	l := slog.New(contextHandler{base})
	current.Store(l)
	slog.SetDefault(l)
}

func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lv
}

// Default 未初始化时按 info/json 初始化
func Default() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init("info", "json")
	return current.Load()
}

// FromContext 返回已绑定 context 字段的 Logger，适合在同一作用域内多次记录
func FromContext(ctx context.Context) *slog.Logger {
	l := Default()
	if ctx == nil {
		return l
	}
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		return slog.New(l.Handler().WithAttrs(attrs))
	}
	return l
}

// WithContext 写入一个日志字段
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// Log 按给定级别记录，级别在运行时决定时使用
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	write(ctx, level, msg, args)
}

func Info(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelInfo, msg, args)
}

func Debug(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelDebug, msg, args)
}

func Warn(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelWarn, msg, args)
}

// Error err 非空时追加 error 字段
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	write(ctx, slog.LevelError, msg, args)
}

// Fatal 记录后以状态码 1 退出
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	Error(ctx, msg, err, args...)
	os.Exit(1)
}

// write 跳过本包的调用栈，使 source 指向真正的调用方
func write(ctx context.Context, level slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := Default()
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

// contextHandler 在输出前补上 context 中的日志字段
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		r.AddAttrs(contextAttrs(ctx)...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	return attrs
}
