// Package buildinfo holds build-time metadata kept apart from user configuration
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// Context contains build-time metadata injected by linker flags at startup
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// GetVersion returns the build version or UnknownValue
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the identifier reported to error telemetry
func (c *Context) Release(app string) string {
	return app + "@" + c.GetVersion()
}

func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.GetVersion(), c.GetBuildDate())
}
