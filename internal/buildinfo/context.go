// Package buildinfo contains build-time metadata kept apart from user configuration.
package buildinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	Version() string
	BuildDate() string
	SystemID() string
}

// Context contains build-time metadata that is not user-configurable.
// It is filled in by main from linker flags.
type Context struct {
	version   string
	buildDate string
	systemID  string
}

// NewContext returns a Context for the given build metadata.
func NewContext(version, buildDate, systemID string) *Context {
	return &Context{version: version, buildDate: buildDate, systemID: systemID}
}

// Version returns the release version used as the error reporting release.
func (c *Context) Version() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.version)
}

// BuildDate returns when the binary was built.
func (c *Context) BuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.buildDate)
}

// SystemID returns the host identifier attached to error reports.
func (c *Context) SystemID() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.systemID)
}

// GoVersion returns the toolchain the binary was built with.
func (c *Context) GoVersion() string {
	return runtime.Version()
}

// DetectSystemID returns the host's stable machine identifier, or an empty
// string when the platform does not expose one.
func DetectSystemID() string {
	id, err := host.HostID()
	if err != nil {
		return ""
	}
	return id
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownValue
	}
	return s
}
