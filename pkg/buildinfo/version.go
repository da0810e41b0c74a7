// Package buildinfo exposes the version stamped into release binaries.
//
// Release builds set the variables through ldflags:
//
//	go build -ldflags "\
//	  -X github.com/tensorlab/opsched/pkg/buildinfo.Version=v1.0.0 \
//	  -X github.com/tensorlab/opsched/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/tensorlab/opsched/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Unstamped binaries, such as those from a plain go build, fall back to the
// module version recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Stamped through ldflags; see the package comment.
var (
	Version = ""
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	if Version != "" {
		return
	}
	Version = "dev"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
}

// Template returns the cobra version template, printing the version along
// with the commit and build date.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
