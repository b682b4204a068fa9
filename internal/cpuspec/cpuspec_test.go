package cpuspec

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

func TestGetOptimalThreadCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec CPUSpec
		want int
	}{
		{"physical cores", CPUSpec{PhysicalCores: 1, LogicalCores: 2}, 1},
		{"logical fallback", CPUSpec{LogicalCores: 1}, 1},
		{"unknown cpu", CPUSpec{}, runtime.NumCPU()},
		{"capped by visible cpus", CPUSpec{PhysicalCores: runtime.NumCPU() + 64}, runtime.NumCPU()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.spec.GetOptimalThreadCount())
		})
	}
}

func TestDetermineThreadCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, DetermineThreadCount(1))
	assert.Equal(t, runtime.NumCPU(), DetermineThreadCount(runtime.NumCPU()+10))
	assert.Positive(t, DetermineThreadCount(0))
}

func TestLogHostInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	LogHostInfo(logger.NewWriterLogger(&buf, logger.LogLevelInfo).Module("host"))
	assert.Contains(t, buf.String(), "host detected")
	assert.Contains(t, buf.String(), "arch="+runtime.GOARCH)
}
