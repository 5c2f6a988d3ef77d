// Package version provide information about the build version
package version

import (
	"runtime/debug"
)

const modulePath = "github.com/emunet/faultbed"

// Version returns the version of the faultbed module in the current build.
// It is "(devel)" for builds from a working tree and "(unknown)" when no
// build information is available, as in test binaries.
func Version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "(unknown)"
	}

	if bi.Main.Path == modulePath {
		return bi.Main.Version
	}

	// embedded as a dependency of another module
	for _, d := range bi.Deps {
		if d.Path == modulePath {
			if d.Replace != nil {
				return d.Replace.Version
			}
			return d.Version
		}
	}

	return "(unknown)"
}
