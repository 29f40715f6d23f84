// Package version identifies this build in logs, health responses, and
// outbound User-Agent headers.
package version

import "runtime/debug"

// AppName prefixes every version string.
const AppName = "brain"

// commit can be injected with -ldflags for builds without a .git directory.
var commit string

// GitCommit is the short revision this binary was built from, or "dev" when
// no revision is known (go test, source tarballs).
var GitCommit = resolve()

// Full returns "brain/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}

func resolve() string {
	if commit != "" {
		return short(commit)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return short(s.Value)
			}
		}
	}
	return "dev"
}

func short(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
