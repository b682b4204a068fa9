package myaudio

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

const (
	// lowPassHalfWidth is the kernel half-length in target-rate samples.
	lowPassHalfWidth = 32
	// lowPassRolloff places the cutoff just below the target Nyquist frequency.
	lowPassRolloff = 0.9
)

// antiAlias removes content above the Nyquist frequency of targetRate before
// downsampling. Upsampling and equal rates return audio unchanged.
func antiAlias(audio []float32, originalRate, targetRate int) []float32 {
	if targetRate >= originalRate || len(audio) == 0 {
		return audio
	}
	return convolveSame(audio, lowPassKernel(float64(targetRate)/float64(originalRate)))
}

// lowPassKernel returns a Blackman-windowed sinc for the decimation ratio
// target/source, with unity gain at DC.
func lowPassKernel(ratio float64) []float64 {
	half := int(math.Ceil(lowPassHalfWidth / ratio))
	win := window.Blackman(2*half + 1)
	cutoff := 0.5 * ratio * lowPassRolloff // cycles per source sample

	kernel := make([]float64, len(win))
	var sum float64
	for i := range kernel {
		x := 2 * cutoff * float64(i-half)
		sinc := 1.0
		if x != 0 {
			sinc = math.Sin(math.Pi*x) / (math.Pi * x)
		}
		kernel[i] = 2 * cutoff * sinc * win[i]
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveSame filters audio with an odd-length centred kernel and returns
// the same number of samples. Taps that fall outside the clip are dropped and
// the rest renormalised, so a constant signal stays constant at the edges.
func convolveSame(audio []float32, kernel []float64) []float32 {
	half := len(kernel) / 2
	out := make([]float32, len(audio))
	for i := range audio {
		lo := max(0, half-i)
		hi := min(len(kernel), len(audio)-i+half)

		var acc, weight float64
		for k := lo; k < hi; k++ {
			acc += kernel[k] * float64(audio[i+k-half])
			weight += kernel[k]
		}
		if weight != 0 {
			acc /= weight
		}
		out[i] = float32(acc)
	}
	return out
}
