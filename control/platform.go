// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Process-level debug probe integrations.

package control

import (
	"os"
	"runtime"

	"github.com/momentics/puki/api"
)

// RegisterPlatformProbes sets process and runtime debug probes.
func RegisterPlatformProbes(dp api.Debug) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS + "/" + runtime.GOARCH
	})
	dp.RegisterProbe("runtime.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("runtime.version", func() any {
		return runtime.Version()
	})
	dp.RegisterProbe("process.pid", func() any {
		return os.Getpid()
	})
}
