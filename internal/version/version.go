package version

import "fmt"

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/brim/internal/version.Version=v1.2.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Engine identifies the rendering semantics. Incremental builds treat
// outputs from a different Engine as stale, so it changes whenever the same
// inputs would render differently.
const Engine = "brim-engine/1"

// String formats the version line printed by --version.
func String() string {
	return fmt.Sprintf("brim %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, Engine)
}
