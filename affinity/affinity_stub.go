//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>

package affinity

import (
	"fmt"

	"github.com/momentics/puki/api"
)

func setAffinityPlatform(int) error {
	return fmt.Errorf("affinity: %w", api.ErrNotSupported)
}

// Current is not available on this platform.
func Current() ([]int, error) {
	return nil, fmt.Errorf("affinity: %w", api.ErrNotSupported)
}

// Pin is not available on this platform.
func Pin(int) (func(), error) {
	return nil, fmt.Errorf("affinity: %w", api.ErrNotSupported)
}
