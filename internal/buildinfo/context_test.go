package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
		systemID  string
	}{
		{"nil context", nil, UnknownValue, UnknownValue, UnknownValue},
		{"empty fields", NewContext("", "", ""), UnknownValue, UnknownValue, UnknownValue},
		{"pre-release", NewContext("1.0.0-beta.1", "2026-01-01", "host-1"), "1.0.0-beta.1", "2026-01-01", "host-1"},
		{"build metadata", NewContext("1.0.0+build.123", "2026-01-01T12:00:00Z", ""), "1.0.0+build.123", "2026-01-01T12:00:00Z", UnknownValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.version, tt.ctx.Version())
			assert.Equal(t, tt.buildDate, tt.ctx.BuildDate())
			assert.Equal(t, tt.systemID, tt.ctx.SystemID())
		})
	}
}

func TestBuildInfoInterface(t *testing.T) {
	t.Parallel()

	var info BuildInfo = NewContext("2.0.0", "today", "abc")
	assert.Equal(t, "2.0.0", info.Version())
	assert.NotEmpty(t, NewContext("", "", "").GoVersion())
}
