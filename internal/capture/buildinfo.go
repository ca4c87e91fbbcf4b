package capture

import (
	"strconv"
	"strings"
)

// wgcMinBuild is the first Windows 10 build (1809) that ships
// Windows.Graphics.Capture.
const wgcMinBuild = 17763

// parseWindowsBuild extracts the build number from a kernel version string
// as reported by the host, e.g. "10.0.19045 Build 19045" or "10.0.22621".
// Returns 0 when no build number can be found.
func parseWindowsBuild(version string) int {
	version = strings.TrimSpace(version)
	if version == "" {
		return 0
	}

	// "... Build NNNNN" wins when present.
	if i := strings.LastIndex(version, "Build "); i >= 0 {
		if n, err := strconv.Atoi(strings.Fields(version[i+len("Build "):])[0]); err == nil {
			return n
		}
	}

	// Otherwise the third dotted component of "major.minor.build".
	parts := strings.Split(strings.Fields(version)[0], ".")
	if len(parts) >= 3 {
		if n, err := strconv.Atoi(parts[2]); err == nil {
			return n
		}
	}
	return 0
}
