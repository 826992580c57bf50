// File: internal/logging/logging.go
// Package logging builds the process slog.Logger.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Console output uses one "LEVEL:message key=value ..." line per record.
// Syslog output goes to the local daemon under the "puki" tag.

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// SyslogTag identifies puki records in the system log.
const SyslogTag = "puki"

// Options configures New.
type Options struct {
	// Console writes to Output (stdout by default) instead of syslog.
	Console bool
	// Level is the minimum level; nil means info.
	Level slog.Leveler
	// Output overrides the console destination.
	Output io.Writer
	// Color forces colored level tags on or off; nil autodetects a terminal.
	Color *bool
}

// New returns a logger for opts. When syslog is unreachable it falls back
// to the console and logs a warning saying so.
func New(opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	if !opts.Console {
		h, err := newSyslogHandler(SyslogTag, level)
		if err == nil {
			return slog.New(h)
		}
		log := slog.New(newConsole(opts, level))
		log.Warn("syslog unavailable, logging to console", "error", err)
		return log
	}
	return slog.New(newConsole(opts, level))
}

func newConsole(opts Options, level slog.Leveler) *ConsoleHandler {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	colored := false
	if opts.Color != nil {
		colored = *opts.Color
	} else if f, ok := out.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}
	return NewConsoleHandler(out, level, colored)
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ConsoleHandler is a slog.Handler producing "LEVEL:message k=v" lines.
type ConsoleHandler struct {
	mu      *sync.Mutex
	out     io.Writer
	level   slog.Leveler
	colored bool
	prefix  string // pre-rendered attrs from WithAttrs/WithGroup
	group   string
}

// NewConsoleHandler writes records at or above level to out.
func NewConsoleHandler(out io.Writer, level slog.Leveler, colored bool) *ConsoleHandler {
	return &ConsoleHandler{mu: new(sync.Mutex), out: out, level: level, colored: colored}
}

func (h *ConsoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	line := h.format(r, h.colored) + "\n"
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

func (h *ConsoleHandler) format(r slog.Record, colored bool) string {
	var b strings.Builder
	b.WriteString(levelTag(r.Level, colored))
	b.WriteByte(':')
	b.WriteString(r.Message)
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	return b.String()
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	c := *h
	c.prefix = b.String()
	return &c
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = h.group + name + "."
	return &c
}

func levelTag(l slog.Level, colored bool) string {
	s := l.String()
	if !colored {
		return s
	}
	switch {
	case l >= slog.LevelError:
		return color.RedString(s)
	case l >= slog.LevelWarn:
		return color.YellowString(s)
	case l >= slog.LevelInfo:
		return color.GreenString(s)
	default:
		return color.CyanString(s)
	}
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		g := group
		if a.Key != "" {
			g += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, g, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(group)
	b.WriteString(a.Key)
	b.WriteByte('=')
	v := a.Value.String()
	if strings.ContainsAny(v, " \t\n\"=") || v == "" {
		v = fmt.Sprintf("%q", v)
	}
	b.WriteString(v)
}
