// Package version carries build identification stamped in via ldflags.
package version

import "fmt"

var (
	// Version is the current build version.
	Version = "dev"
	// GitSHA is the git commit SHA.
	GitSHA = "unknown"
)

// String renders the build identification for logs.
func String() string {
	return fmt.Sprintf("%s (%s)", Version, GitSHA)
}
