package version

var (
	// Version is the semantic version of the binary, overridden via ldflags.
	Version = "dev"
	// Commit is the git commit hash, overridden via ldflags.
	Commit = "unknown"
	// BuildDate is the build timestamp, overridden via ldflags.
	BuildDate = "unknown"
)
