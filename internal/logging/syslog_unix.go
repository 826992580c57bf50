//go:build !windows && !plan9

// File: internal/logging/syslog_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package logging

import (
	"context"
	"log/slog"
	"log/syslog"
)

// syslogHandler renders records like the console handler and routes them
// to the syslog priority matching their level.
type syslogHandler struct {
	w     *syslog.Writer
	inner *ConsoleHandler
}

func newSyslogHandler(tag string, level slog.Leveler) (slog.Handler, error) {
	w, err := syslog.New(syslog.LOG_USER|syslog.LOG_INFO, tag)
	if err != nil {
		return nil, err
	}
	return &syslogHandler{w: w, inner: NewConsoleHandler(nil, level, false)}, nil
}

func (h *syslogHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *syslogHandler) Handle(_ context.Context, r slog.Record) error {
	line := h.inner.format(r, false)
	switch {
	case r.Level >= slog.LevelError:
		return h.w.Err(line)
	case r.Level >= slog.LevelWarn:
		return h.w.Warning(line)
	case r.Level >= slog.LevelInfo:
		return h.w.Info(line)
	default:
		return h.w.Debug(line)
	}
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syslogHandler{w: h.w, inner: h.inner.WithAttrs(attrs).(*ConsoleHandler)}
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	return &syslogHandler{w: h.w, inner: h.inner.WithGroup(name).(*ConsoleHandler)}
}
