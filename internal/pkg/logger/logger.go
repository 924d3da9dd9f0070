// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey identifies request scoped values copied into every record
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyClientIP  ContextKey = "client_ip"
	ContextKeyMethod    ContextKey = "method"
	ContextKeyPath      ContextKey = "path"
	ContextKeyView      ContextKey = "view"
	ContextKeyJobID     ContextKey = "job_id"
)

var contextKeys = []ContextKey{
	ContextKeyRequestID,
	ContextKeyClientIP,
	ContextKeyMethod,
	ContextKeyPath,
	ContextKeyView,
	ContextKeyJobID,
}

// Options controls how SetupLogger builds the handler chain
type Options struct {
	Level       string
	Format      string
	Output      io.Writer
	AddSource   bool
	ServiceName string
	Version     string
	Environment string
	// Tee receives a JSON copy of every record, typically a log file
	Tee io.Writer
}

// SetupLogger builds the process logger and installs it as the slog default.
// Format "json" is meant for servers, "text" for a developer terminal and
// "pretty" for colored local output.
func SetupLogger(level string, format string) *slog.Logger {
	l := New(Options{
		Level:       level,
		Format:      format,
		AddSource:   strings.EqualFold(level, "debug"),
		ServiceName: os.Getenv("SERVICE_NAME"),
		Version:     os.Getenv("SERVICE_VERSION"),
		Environment: os.Getenv("APP_ENV"),
	})
	slog.SetDefault(l)
	return l
}

// New creates a logger without touching the slog default
func New(opts Options) *slog.Logger {
	w := opts.Output
	if w == nil {
		w = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return replaceAttr(opts.Format, a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text":
		h = slog.NewTextHandler(w, handlerOpts)
	case "pretty":
		h = NewPrettyTextHandler(w, handlerOpts)
	default:
		h = slog.NewJSONHandler(w, handlerOpts)
	}

	if opts.Tee != nil {
		h = NewMultiHandler(h, slog.NewJSONHandler(opts.Tee, handlerOpts))
	}

	h = NewSanitizationHandler(NewContextHandler(h))

	var attrs []slog.Attr
	if opts.ServiceName != "" {
		attrs = append(attrs, slog.String("service", opts.ServiceName))
	}
	if opts.Version != "" {
		attrs = append(attrs, slog.String("version", opts.Version))
	}
	if opts.Environment != "" {
		attrs = append(attrs, slog.String("env", opts.Environment))
	}
	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}

	return slog.New(h)
}

// Discard returns a logger that drops everything. Used by the terminal UI,
// which owns stdout.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithValue stores a loggable value on the context
func WithValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// RequestID returns the request id stored on ctx, if any
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyRequestID).(string)
	return v
}

func extractContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, key := range contextKeys {
		switch v := ctx.Value(key).(type) {
		case string:
			if v != "" {
				attrs = append(attrs, slog.String(string(key), v))
			}
		case nil:
		default:
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	return attrs
}

func replaceAttr(format string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
		}
	}

	if a.Key == slog.LevelKey && strings.EqualFold(format, "json") {
		a.Key = "severity"
	}

	if strings.HasSuffix(a.Key, "_ms") {
		if d, ok := a.Value.Any().(time.Duration); ok {
			a.Value = slog.Float64Value(float64(d.Microseconds()) / 1000)
		}
	}

	return a
}
