// Package version carries build metadata set with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is sent with every request to the collector.
func UserAgent() string {
	return fmt.Sprintf("workagent/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

func String() string {
	return fmt.Sprintf("workagent version %s\n  commit: %s\n  built:  %s\n  go:     %s",
		Version, Commit, Date, runtime.Version())
}
