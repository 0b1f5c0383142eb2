// Package buildinfo carries build-time metadata injected with -ldflags.
// It is kept apart from user configuration.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// UnknownValue is reported for metadata that was not injected
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
}

// Context contains build-time metadata that is not user-configurable
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// NewContext returns a Context. An empty version falls back to the module
// version recorded by the Go toolchain, if any.
func NewContext(version, buildDate string) *Context {
	if version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
	}
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release is the Sentry release name, e.g. "binged@1.2.0".
func (c *Context) Release() string {
	return "binged@" + c.GetVersion()
}

// String renders the version line printed by the CLI.
func (c *Context) String() string {
	return fmt.Sprintf("binged %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
