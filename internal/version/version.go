// Package version carries build metadata set with -ldflags.
package version

import (
	"flag"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

type BuildInfo struct {
	Version   string `json:"version,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
}

// Get returns the build info of the running binary.
func Get() BuildInfo {
	v := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	// Keep output stable under go test.
	if flag.Lookup("test.v") != nil {
		v.GoVersion = ""
	}
	return v
}
