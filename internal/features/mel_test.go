package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func defaultTransform(t *testing.T) *MelTransform {
	t.Helper()
	tr, err := NewMelTransform(MelConfig{SampleRate: 32000, NFFT: 2048, HopLength: 512, NMels: 128})
	require.NoError(t, err)
	return tr
}

func TestSlaneyMelScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hz  float64
		mel float64
	}{
		{0, 0},
		{200, 3},
		{1000, 15},
		{6400, 42},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.mel, HzToMel(tt.hz), 1e-9, "HzToMel(%v)", tt.hz)
		assert.InDelta(t, tt.hz, MelToHz(tt.mel), 1e-6, "MelToHz(%v)", tt.mel)
	}
}

func TestMelFilterBank(t *testing.T) {
	t.Parallel()

	bank := MelFilterBank(32000, 2048, 128, 0, 16000)
	require.Len(t, bank, 128)

	for m, row := range bank {
		require.Len(t, row, 1025)
		var sum float64
		for _, w := range row {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		if m > 8 {
			// the lowest filters are narrower than one FFT bin and may miss every bin
			assert.Positive(t, sum, "filter %d is empty", m)
		}
	}
}

func TestMelSpectrogramShape(t *testing.T) {
	t.Parallel()

	tr := defaultTransform(t)
	tests := []struct {
		name       string
		samples    int
		wantFrames int
	}{
		{"one second", 32000, 63},
		{"shorter than a hop", 100, 1},
		{"exact hop multiple", 1024, 3},
		{"single sample", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := tr.LogMelSpectrogram(tone(440, 32000, tt.samples))
			bands, frames := s.Shape()
			assert.Equal(t, 128, bands)
			assert.Equal(t, tt.wantFrames, frames)
			assert.Len(t, s.Data, bands*frames)
		})
	}
}

func TestMelSpectrogramPeakBand(t *testing.T) {
	t.Parallel()

	tr := defaultTransform(t)
	s := tr.MelSpectrogram(tone(1000, 32000, 32000))

	mid := s.Frames / 2
	best, bestVal := 0, -1.0
	for b := range s.Bands {
		if v := s.At(b, mid); v > bestVal {
			best, bestVal = b, v
		}
	}
	assert.InDelta(t, 34, best, 2, "1 kHz sits near mel 15")
}

func TestPowerToDB(t *testing.T) {
	t.Parallel()

	s := &Spectrogram{Bands: 1, Frames: 4, Data: []float64{1, 0.1, 1e-12, 0}}
	db := PowerToDB(s, DefaultAmin, DefaultTopDB)

	assert.InDelta(t, 0, db.Data[0], 1e-9, "peak maps to 0 dB")
	assert.InDelta(t, -10, db.Data[1], 1e-9)
	assert.InDelta(t, -80, db.Data[2], 1e-9, "values below the top_db window are clamped")
	assert.InDelta(t, -80, db.Data[3], 1e-9)
	assert.InDelta(t, 1.0, s.Data[0], 0, "input is left untouched")

	noClamp := PowerToDB(s, DefaultAmin, 0)
	assert.InDelta(t, -100, noClamp.Data[2], 1e-9)
}

func TestLogMelRange(t *testing.T) {
	t.Parallel()

	s := defaultTransform(t).LogMelSpectrogram(tone(3000, 32000, 16000))
	lo, hi := s.MinMax()
	assert.InDelta(t, 0, hi, 1e-9)
	assert.GreaterOrEqual(t, lo, -80.0-1e-9)
}

func TestSilenceIsFinite(t *testing.T) {
	t.Parallel()

	s := defaultTransform(t).LogMelSpectrogram(make([]float32, 4000))
	for _, v := range s.Data {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestNewMelTransformRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewMelTransform(MelConfig{SampleRate: 32000, NFFT: 0, HopLength: 512, NMels: 128})
	assert.Error(t, err)
}
