// Package buildinfo carries version metadata stamped in with -ldflags.
package buildinfo

var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)
