// Package logging configures slog for the command line tools
package logging

import (
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

// ContextHandler adds the attributes stored with AppendCtx to every record
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx returns a copy of parent carrying attrs for the *Context log calls
func AppendCtx(parent context.Context, attrs ...slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	prev, _ := parent.Value(ctxKey{}).([]slog.Attr)
	next := make([]slog.Attr, 0, len(prev)+len(attrs))
	next = append(append(next, prev...), attrs...)
	return context.WithValue(parent, ctxKey{}, next)
}

// Logger writes text or json records at level and above to w
func Logger(w io.Writer, json bool, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(ContextHandler{h})
}

// RotatingWriter appends to path, rolling the file over at maxMB megabytes
// and keeping up to backups old files
func RotatingWriter(path string, maxMB, backups int) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMB,
		MaxBackups: backups,
		Compress:   true,
	}
}
