// Package version holds build metadata stamped in via ldflags.
package version

import "runtime"

var (
	GitRelease    = "dev"
	GitCommit     = ""
	GitCommitDate = ""
	GoInfo        = runtime.Version()
)
