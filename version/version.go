package version

const (
	defaultVersion = "v0.1.0"
)

var (
	// Package is filled at linking time
	Package = "github.com/fleure/fleure-db"

	// Version holds the complete version number. Filled in at linking time.
	Version = defaultVersion

	// Revision is filled with the VCS (e.g. git) revision being used to build
	// the program at linking time.
	Revision = ""
)

// String returns the version line printed by `fleure-db version`.
func String() string {
	if Revision == "" {
		return Package + " " + Version
	}
	return Package + " " + Version + " (" + Revision + ")"
}
