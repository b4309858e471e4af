package main

import (
	"fmt"
	"runtime"
)

// Build metadata, stamped by the release pipeline through -ldflags. The
// defaults identify a local developer build.
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// BuildInfo describes the running backend binary. It is logged at startup
// and exposed on the root endpoint so deployed instances can be matched to
// a commit.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo snapshots the stamped metadata together with the runtime
// that produced the binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
