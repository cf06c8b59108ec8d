package version

// Build metadata injected through -ldflags "-X odds-picks/internal/version.Version=...".
var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)

// UserAgent identifies this binary to upstream APIs.
func UserAgent() string {
	return "oddspicks/" + Version
}
