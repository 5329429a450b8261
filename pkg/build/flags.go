// SPDX-License-Identifier: MIT
//
// Package build exposes metadata injected at compile time via linker
// flags: application name, build timestamp, Git commit, and semantic
// version. Development builds without ldflags fall back to placeholder
// values instead of failing.
package build

// Flags holds build-time information populated via -ldflags, for example:
//
//	go build -ldflags "-X pulseviz/pkg/build.buildName=pulseviz -X pulseviz/pkg/build.buildVersion=0.1.0"
type Flags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	buildFlags = &Flags{
		Name:        "pulseviz",
		Description: "Real-time audio analysis for visual renderers",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies any ldflags-injected values over the development
// defaults. Call once early in startup.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Flags {
	return buildFlags
}
