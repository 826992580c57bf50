//go:build windows || plan9

// File: internal/logging/syslog_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package logging

import (
	"errors"
	"log/slog"
)

func newSyslogHandler(string, slog.Leveler) (slog.Handler, error) {
	return nil, errors.New("syslog not supported on this platform")
}
