package features

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	slaneyFSP       = 200.0 / 3
	slaneyMinLogHz  = 1000.0
	slaneyMinLogMel = slaneyMinLogHz / slaneyFSP
)

var slaneyLogStep = math.Log(6.4) / 27.0

// HzToMel converts a frequency to the Slaney mel scale.
func HzToMel(hz float64) float64 {
	if hz >= slaneyMinLogHz {
		return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
	}
	return hz / slaneyFSP
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel >= slaneyMinLogMel {
		return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
	}
	return mel * slaneyFSP
}

// melFrequencies returns n frequencies evenly spaced on the mel scale between fmin and fmax.
func melFrequencies(n int, fmin, fmax float64) []float64 {
	lo, hi := HzToMel(fmin), HzToMel(fmax)
	out := make([]float64, n)
	for i := range out {
		mel := lo
		if n > 1 {
			mel = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		out[i] = MelToHz(mel)
	}
	return out
}

// MelFilterBank builds an nMels x (nFFT/2+1) triangular filter bank with
// Slaney area normalisation, covering fmin to fmax.
func MelFilterBank(sampleRate, nFFT, nMels int, fmin, fmax float64) [][]float64 {
	nBins := nFFT/2 + 1
	fftFreqs := make([]float64, nBins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(sampleRate) / float64(nFFT)
	}

	melF := melFrequencies(nMels+2, fmin, fmax)
	fdiff := make([]float64, len(melF)-1)
	for i := range fdiff {
		fdiff[i] = melF[i+1] - melF[i]
	}

	weights := make([][]float64, nMels)
	for m := range weights {
		row := make([]float64, nBins)
		enorm := 2.0 / (melF[m+2] - melF[m])
		for k, f := range fftFreqs {
			lower := (f - melF[m]) / fdiff[m]
			upper := (melF[m+2] - f) / fdiff[m+1]
			row[k] = max(0, min(lower, upper)) * enorm
		}
		weights[m] = row
	}
	return weights
}
