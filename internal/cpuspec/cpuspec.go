// Package cpuspec inspects the host CPU and memory to size model runtimes.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// CPUSpec contains information about the host processor.
type CPUSpec struct {
	BrandName      string
	PhysicalCores  int
	LogicalCores   int
	ThreadsPerCore int
	AVX2           bool
	AVX512         bool
	FMA3           bool
	NEON           bool
}

// HostInfo adds memory figures to the CPU description.
type HostInfo struct {
	CPU            CPUSpec
	TotalMemory    uint64
	AvailableBytes uint64
}

// GetCPUSpec returns the CPU details detected by cpuid.
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:      cpuid.CPU.BrandName,
		PhysicalCores:  cpuid.CPU.PhysicalCores,
		LogicalCores:   cpuid.CPU.LogicalCores,
		ThreadsPerCore: cpuid.CPU.ThreadsPerCore,
		AVX2:           cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:         cpuid.CPU.Supports(cpuid.AVX512F),
		FMA3:           cpuid.CPU.Supports(cpuid.FMA3),
		NEON:           cpuid.CPU.Supports(cpuid.ASIMD),
	}
}

// GetOptimalThreadCount returns the recommended interpreter thread count:
// one per physical core, bounded by the CPUs visible to the process.
func (c CPUSpec) GetOptimalThreadCount() int {
	available := runtime.NumCPU()
	if c.PhysicalCores > 0 {
		return min(c.PhysicalCores, available)
	}
	if c.LogicalCores > 0 {
		return min(c.LogicalCores, available)
	}
	return available
}

// SupportsXNNPACK reports whether the CPU has the SIMD extensions the
// XNNPACK delegate relies on for float kernels.
func (c CPUSpec) SupportsXNNPACK() bool {
	return c.AVX2 || c.NEON
}

// DetermineThreadCount resolves a configured thread count. Zero picks the
// optimal count; larger values are capped at the visible CPU count.
func DetermineThreadCount(configured int) int {
	available := runtime.NumCPU()
	if configured <= 0 {
		return GetCPUSpec().GetOptimalThreadCount()
	}
	return min(configured, available)
}

// GetHostInfo returns CPU and memory information. Memory fields are zero
// when the platform does not expose them.
func GetHostInfo() HostInfo {
	info := HostInfo{CPU: GetCPUSpec()}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
		info.AvailableBytes = vm.Available
	}
	return info
}

// LogHostInfo writes the host description to log.
func LogHostInfo(log logger.Logger) {
	info := GetHostInfo()
	log.Info("host detected",
		logger.String("cpu", info.CPU.BrandName),
		logger.Int("physical_cores", info.CPU.PhysicalCores),
		logger.Int("logical_cores", info.CPU.LogicalCores),
		logger.Bool("avx2", info.CPU.AVX2),
		logger.Bool("avx512", info.CPU.AVX512),
		logger.Uint64("memory_total_bytes", info.TotalMemory),
		logger.Uint64("memory_available_bytes", info.AvailableBytes),
		logger.String("os", runtime.GOOS),
		logger.String("arch", runtime.GOARCH))
}
