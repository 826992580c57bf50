//go:build windows || plan9

// control/errno_other.go
// Author: momentics <momentics@gmail.com>
//
// Errno labels where x/sys/unix is unavailable.

package control

import (
	"errors"
	"strconv"
	"syscall"
)

func errnoLabel(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return "unknown"
	}
	return "errno_" + strconv.FormatUint(uint64(errno), 10)
}
