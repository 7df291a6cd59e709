// Package logging builds the slog logger used by r2c, optionally forwarding
// errors to Sentry.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds logging configuration.
type Config struct {
	Verbose   bool
	SentryDSN string
	Version   string
	Output    io.Writer // defaults to stderr
}

// New returns a logger for cfg and a flush function to call before exit.
func New(cfg Config) (*slog.Logger, func(), error) {
	sentryEnabled := false
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.SentryDSN,
			Release: cfg.Version,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("sentry init: %w", err)
		}
		sentryEnabled = true
	}

	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	handler := &sentryHandler{
		Handler: slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					if t, ok := a.Value.Any().(time.Time); ok {
						a.Value = slog.StringValue(t.Local().Format("15:04:05.000"))
					}
				}
				return a
			},
		}),
		sentryEnabled: sentryEnabled,
	}

	flush := func() {
		if sentryEnabled {
			sentry.Flush(2 * time.Second)
		}
	}
	return slog.New(handler), flush, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sentryHandler wraps an slog.Handler and sends errors to Sentry. It keeps
// the attributes added through With so events carry the same context as the
// log line.
type sentryHandler struct {
	slog.Handler
	sentryEnabled bool
	attrs         []slog.Attr
	group         string
}

func (h *sentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}
	if h.sentryEnabled && r.Level >= slog.LevelError {
		sentry.CaptureEvent(h.event(r))
	}
	return nil
}

func (h *sentryHandler) event(r slog.Record) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = r.Message
	event.Timestamp = r.Time
	for _, a := range h.attrs {
		event.Extra[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		event.Extra[h.key(a.Key)] = a.Value.String()
		return true
	})
	return event
}

func (h *sentryHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *sentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.Handler = h.Handler.WithAttrs(attrs)
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &next
}

func (h *sentryHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.Handler = h.Handler.WithGroup(name)
	next.group = h.key(name)
	return &next
}
