// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version
	Version = "1.5.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String returns the full version line for a named tool, in the form
// "spblob:blobnn 1.5.0 (commit unknown, built unknown)".
func String(tool string) string {
	return fmt.Sprintf("spblob:%s %s (commit %s, built %s)", tool, Version, GitCommit, BuildTime)
}
