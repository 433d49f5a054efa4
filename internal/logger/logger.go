// Package logger constructs the slog logger used by the service and by
// tests. Every record carries the request's trace id when one is present in
// the context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/web"
)

// New constructs a slog Logger that writes JSON records to stdout.
func New(service string) *slog.Logger {
	opts := slog.HandlerOptions{
		AddSource: true,
	}
	jh := slog.NewJSONHandler(os.Stdout, &opts)
	return slog.New(withTraceID{Handler: jh}).With("service", service)
}

type withTraceID struct {
	slog.Handler
}

func (h withTraceID) Handle(ctx context.Context, r slog.Record) error {
	r.Add("trace_id", web.GetTraceID(ctx))

	return h.Handler.Handle(ctx, r)
}

func (h withTraceID) WithAttrs(attrs []slog.Attr) slog.Handler {
	return withTraceID{Handler: h.Handler.WithAttrs(attrs)}
}

func (h withTraceID) WithGroup(name string) slog.Handler {
	return withTraceID{Handler: h.Handler.WithGroup(name)}
}

// InfocCtx logs at info level reporting the caller's source position instead
// of this function's. caller is the number of stack frames to skip.
func InfocCtx(ctx context.Context, log *slog.Logger, caller int, msg string, args ...any) {
	if !log.Enabled(ctx, slog.LevelInfo) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(caller, pcs[:])

	r := slog.NewRecord(time.Now(), slog.LevelInfo, msg, pcs[0])
	r.Add(args...)

	log.Handler().Handle(ctx, r)
}
