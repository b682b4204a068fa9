// Package features turns decoded audio into log-power mel spectrograms.
package features

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Spectrogram is a Bands x Frames matrix stored row-major.
type Spectrogram struct {
	Bands  int
	Frames int
	Data   []float64
}

// At returns the value of band b at frame t.
func (s *Spectrogram) At(b, t int) float64 {
	return s.Data[b*s.Frames+t]
}

// Shape returns (Bands, Frames).
func (s *Spectrogram) Shape() (int, int) {
	return s.Bands, s.Frames
}

// MinMax returns the smallest and largest value.
func (s *Spectrogram) MinMax() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range s.Data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// MelConfig holds the STFT and filter bank parameters.
type MelConfig struct {
	SampleRate int
	NFFT       int
	HopLength  int
	NMels      int
	FMin       float64
	FMax       float64 // 0 means SampleRate/2
}

// MelTransform computes power mel spectrograms for one configuration.
// The filter bank and window are shared and read-only; a MelTransform is
// safe for concurrent use.
type MelTransform struct {
	cfg     MelConfig
	window  []float64
	filters *mat.Dense
}

// NewMelTransform precomputes the periodic Hann window and the mel filter bank.
func NewMelTransform(cfg MelConfig) (*MelTransform, error) {
	if cfg.SampleRate <= 0 || cfg.NFFT <= 0 || cfg.HopLength <= 0 || cfg.NMels <= 0 {
		return nil, fmt.Errorf("invalid mel configuration: %+v", cfg)
	}
	if cfg.FMax <= 0 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}

	// periodic Hann: the symmetric window of length n+1 without its last sample
	win := window.Hann(cfg.NFFT + 1)[:cfg.NFFT]

	bank := MelFilterBank(cfg.SampleRate, cfg.NFFT, cfg.NMels, cfg.FMin, cfg.FMax)
	nBins := cfg.NFFT/2 + 1
	filters := mat.NewDense(cfg.NMels, nBins, nil)
	for m, row := range bank {
		filters.SetRow(m, row)
	}

	return &MelTransform{cfg: cfg, window: win, filters: filters}, nil
}

// Config returns the effective configuration.
func (t *MelTransform) Config() MelConfig { return t.cfg }

// FrameCount returns the number of centred STFT frames for n samples.
func (t *MelTransform) FrameCount(n int) int {
	return 1 + n/t.cfg.HopLength
}

// PowerSpectrogram returns the (nFFT/2+1) x frames power STFT of samples.
// Frames are centred: the signal is zero-padded by nFFT/2 on both sides.
func (t *MelTransform) PowerSpectrogram(samples []float32) *mat.Dense {
	nFFT, hop := t.cfg.NFFT, t.cfg.HopLength
	pad := nFFT / 2

	padded := make([]float64, len(samples)+2*pad)
	for i, s := range samples {
		padded[pad+i] = float64(s)
	}

	frames := t.FrameCount(len(samples))
	nBins := nFFT/2 + 1
	power := mat.NewDense(nBins, frames, nil)

	fft := fourier.NewFFT(nFFT)
	frame := make([]float64, nFFT)
	coeffs := make([]complex128, nBins)
	for f := range frames {
		start := f * hop
		for i := range frame {
			frame[i] = padded[start+i] * t.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power.Set(k, f, re*re+im*im)
		}
	}
	return power
}

// MelSpectrogram returns the NMels x frames power mel spectrogram of samples.
func (t *MelTransform) MelSpectrogram(samples []float32) *Spectrogram {
	power := t.PowerSpectrogram(samples)
	_, frames := power.Dims()

	var mel mat.Dense
	mel.Mul(t.filters, power)

	return &Spectrogram{
		Bands:  t.cfg.NMels,
		Frames: frames,
		Data:   mel.RawMatrix().Data,
	}
}

// LogMelSpectrogram is PowerToDB(MelSpectrogram(samples)) with the default dB parameters.
func (t *MelTransform) LogMelSpectrogram(samples []float32) *Spectrogram {
	return PowerToDB(t.MelSpectrogram(samples), DefaultAmin, DefaultTopDB)
}
