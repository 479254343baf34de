package app

import (
	"runtime"
	"runtime/debug"
)

// Build-time variables set via -ldflags. For example:
//
//	go build -ldflags "-X github.com/jonas-kell/jta-display-wall-adapter/internal/app.Version=v1.0.0"
var (
	Version   = "dev"
	GoVersion = ""
	BuiltAt   = "unknown"
)

// VersionInfo is the body of GET /api/version.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	BuiltAt   string `json:"built_at"`
	Revision  string `json:"revision,omitempty"`
}

// BuildVersion reports the ldflags values, filled in from the embedded
// build info where they were not set.
func BuildVersion() VersionInfo {
	v := VersionInfo{Version: Version, GoVersion: GoVersion, BuiltAt: BuiltAt}
	if v.GoVersion == "" {
		v.GoVersion = runtime.Version()
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				v.Revision = s.Value
			case "vcs.time":
				if v.BuiltAt == "unknown" {
					v.BuiltAt = s.Value
				}
			}
		}
	}
	return v
}
