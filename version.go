// Package buildall discovers build-project bundles under a directory tree
// and rebuilds each one with an external build tool.
package buildall

// Version is the release version, overridden at link time.
var Version = "dev"
