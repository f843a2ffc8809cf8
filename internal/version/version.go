package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/gateworks/periphmon/internal/version.Version=v1.2.3 \
//	                   -X github.com/gateworks/periphmon/internal/version.Commit=abc123"
//
// Otherwise they are filled from the VCS stamp of the build, falling back to
// "dev" and "unknown".
var (
	// Version is the semantic version of periphmon
	Version = ""
	// Commit is the short git commit hash
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromSettings fills Version and Commit from the vcs.* build settings
func fromSettings(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	// build info carries no tags, so untagged builds are dated instead
	if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); Version == "" && err == nil {
		Version = "dev-" + t.Format("20060102")
	}
}

// Full returns the version including the commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
