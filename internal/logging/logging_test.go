package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func consoleLogger(buf *bytes.Buffer, level slog.Leveler) *slog.Logger {
	off := false
	return New(Options{Console: true, Level: level, Output: buf, Color: &off})
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := consoleLogger(&buf, slog.LevelDebug)

	log.Info("new connection", "fd", 5, "addr", "127.0.0.1:40000")
	log.Debug("received data", "fd", 5, "data", "hello world")

	want := "INFO:new connection fd=5 addr=127.0.0.1:40000\n" +
		"DEBUG:received data fd=5 data=\"hello world\"\n"
	if got := buf.String(); got != want {
		t.Fatalf("output mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := consoleLogger(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown")
	if got := buf.String(); got != "WARN:shown\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestConsoleLevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelError)
	log := consoleLogger(&buf, lv)
	log.Info("before")
	lv.Set(slog.LevelInfo)
	log.Info("after")
	if got := buf.String(); got != "INFO:after\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestConsoleWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := consoleLogger(&buf, nil).With("component", "server").WithGroup("conn")
	log.Info("closed", "fd", 7, slog.Group("peer", "port", 80))
	want := "INFO:closed component=server conn.fd=7 conn.peer.port=80\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestConsoleColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler(&buf, slog.LevelInfo, true)
	slog.New(h).Error("boom")
	if !strings.HasSuffix(buf.String(), ":boom\n") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) should fail")
	}
}

func TestSyslogModeAlwaysReturnsLogger(t *testing.T) {
	// Falls back to stdout when no syslog daemon is reachable.
	if New(Options{}) == nil {
		t.Fatal("New returned nil")
	}
}
