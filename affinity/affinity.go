// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// CPU pinning for the reactor's OS thread. Callers must hold
// runtime.LockOSThread for the pin to stay attached to their goroutine.

package affinity

import (
	"fmt"

	"github.com/momentics/puki/api"
)

// maxCPU matches the kernel's CPU_SETSIZE.
const maxCPU = 1024

// SetAffinity pins the calling OS thread to logical CPU cpuID.
func SetAffinity(cpuID int) error {
	if cpuID < 0 || cpuID >= maxCPU {
		return fmt.Errorf("affinity: cpu %d outside 0..%d: %w", cpuID, maxCPU-1, api.ErrInvalidArgument)
	}
	return setAffinityPlatform(cpuID)
}
