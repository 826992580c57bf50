//go:build !windows && !plan9

// control/errno_unix.go
// Author: momentics <momentics@gmail.com>
//
// Errno names for metric labels.

package control

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errnoLabel names the errno behind err, such as "EMFILE", or "unknown".
func errnoLabel(err error) string {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return "unknown"
	}
	if name := unix.ErrnoName(errno); name != "" {
		return name
	}
	return "unknown"
}
