// Package build provides variables that are set at build-time with the
// -X ldflag. If the values are not given at build-time, they are
// determined from [debug.ReadBuildInfo].
package build

import (
	"runtime/debug"
	"sync"
)

var (
	version   string
	buildTime string
)

var once sync.Once

func load() {
	if version != "" && buildTime != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "" {
		version = info.Main.Version
	}
	if buildTime == "" {
		for _, s := range info.Settings {
			if s.Key == "vcs.time" {
				buildTime = s.Value
				break
			}
		}
	}
}

// Version is the module version, either from the -X ldflag or the
// embedded build info.
func Version() string {
	once.Do(load)
	return version
}

// BuildTime is the VCS commit time in RFC 3339 form, when known.
func BuildTime() string {
	once.Do(load)
	return buildTime
}
