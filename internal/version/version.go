// Package version holds build metadata set via -ldflags.
package version

// These are intended to be set via -ldflags at build time.
var (
	version   = "dev"
	commitSHA = ""
	buildDate = ""
)

func Version() string {
	v := version
	if commitSHA != "" {
		v += "+" + commitSHA
	}
	if buildDate != "" {
		v += " (" + buildDate + ")"
	}
	return v
}

// UserAgent is the fixed client identifier sent with every request.
func UserAgent() string {
	return "clify/" + version
}
