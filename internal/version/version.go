package version

import (
	"strings"

	"github.com/fatih/color"
)

// Version information for the weft CLI.
// These variables can be overridden at build time via -ldflags.

var (
	// Version is the semantic version of the engine. It stays plain text:
	// workspace configs check it against their [engine] required constraint.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Pretty returns Version with each component colorized for terminal display.
// Versions that do not split into major.minor.patch come back unchanged.
func Pretty() string {
	rest, suffix := Version, ""
	if i := strings.IndexAny(rest, "-+"); i >= 0 {
		rest, suffix = rest[:i], rest[i:]
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version
	}
	return majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2]) + suffix
}
