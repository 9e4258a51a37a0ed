package main

import "runtime/debug"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// versionString returns version, suffixed with the short VCS revision when
// the binary was built from a checkout that is not exactly the tagged release.
func versionString() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}

	return formatVersion(version, info)
}

func formatVersion(base string, info *debug.BuildInfo) string {
	var revision string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	// a module built from its tagged version carries that tag as the main version
	if info.Main.Version == "v"+base && !modified {
		return base
	}
	if revision == "" {
		return base
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified {
		revision += "-dirty"
	}

	return base + "-" + revision
}
