package observability

import (
	"os"

	"github.com/grafana/pyroscope-go"

	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
)

// StartProfiling attaches the process to a Pyroscope server when configured.
// It is a no-op unless PYROSCOPE_SERVER_ADDRESS is set or profiling is
// enabled in the config file via app assembly.
func StartProfiling(appName string) {
	addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if addr == "" {
		return
	}
	StartProfilingAt(appName, addr)
}

// StartProfilingAt starts continuous profiling against the given server.
func StartProfilingAt(appName, serverAddress string) {
	if serverAddress == "" {
		return
	}
	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   serverAddress,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		logger.Warnf("profiling disabled, pyroscope start failed: %v", err)
	}
}
