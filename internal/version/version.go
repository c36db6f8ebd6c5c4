package version

// Version is overridden at build time via -ldflags.
var Version = "local"

func Get() string {
	return Version
}
