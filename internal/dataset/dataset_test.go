package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/features"
)

func ramp(bands, frames int) *features.Spectrogram {
	s := &features.Spectrogram{Bands: bands, Frames: frames, Data: make([]float64, bands*frames)}
	for b := range bands {
		for t := range frames {
			s.Data[b*frames+t] = float64(b) - float64(t)*0.5
		}
	}
	return s
}

func constant(bands, frames int, v float64) *features.Spectrogram {
	s := &features.Spectrogram{Bands: bands, Frames: frames, Data: make([]float64, bands*frames)}
	for i := range s.Data {
		s.Data[i] = v
	}
	return s
}

func TestSampleShapeIndependentOfDuration(t *testing.T) {
	t.Parallel()

	for _, frames := range []int{1, 7, 63, 224, 313, 1000} {
		for _, antialias := range []bool{true, false} {
			set := &features.Set{Features: []*features.Spectrogram{ramp(128, frames)}, Labels: []int{1}}
			ds, err := New(set, 224, antialias)
			require.NoError(t, err)

			s, err := ds.Get(0)
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{3, 224, 224}, s.Image.Shape(), "frames=%d", frames)
			assert.True(t, s.HasLabel)
			assert.Equal(t, 1, s.Label)
		}
	}
}

func TestChannelsAreReplicated(t *testing.T) {
	t.Parallel()

	ds, err := New(&features.Set{Features: []*features.Spectrogram{ramp(16, 40)}}, 8, true)
	require.NoError(t, err)
	s, err := ds.Get(0)
	require.NoError(t, err)
	assert.False(t, s.HasLabel)

	data := s.Image.Data().([]float32)
	plane := 8 * 8
	assert.Equal(t, data[:plane], data[plane:2*plane])
	assert.Equal(t, data[:plane], data[2*plane:])
}

func TestResizePreservesConstant(t *testing.T) {
	t.Parallel()

	for _, antialias := range []bool{true, false} {
		for _, frames := range []int{1, 50, 500} {
			out := Resize(constant(128, frames, -42), 224, antialias)
			for _, v := range out {
				require.InDelta(t, -42, v, 1e-4)
			}
		}
	}
}

func TestResizeIdentity(t *testing.T) {
	t.Parallel()

	s := ramp(4, 4)
	out := Resize(s, 4, false)
	for i, v := range s.Data {
		assert.InDelta(t, v, out[i], 1e-6)
	}
}

func TestResizeUpsampleInterpolates(t *testing.T) {
	t.Parallel()

	// one row, two frames: 0 and 1, upsampled to 4 columns with half-pixel centres
	s := &features.Spectrogram{Bands: 1, Frames: 2, Data: []float64{0, 1}}
	out := Resize(s, 4, false)
	assert.InDeltaSlice(t, []float32{0, 0.25, 0.75, 1}, out[:4], 1e-6)
}

func TestNewRejectsMismatchedLabels(t *testing.T) {
	t.Parallel()

	_, err := New(&features.Set{Features: []*features.Spectrogram{ramp(2, 2)}, Labels: []int{0, 1}}, 4, true)
	assert.Error(t, err)
}

func TestGetOutOfRange(t *testing.T) {
	t.Parallel()

	ds, err := New(&features.Set{Features: []*features.Spectrogram{ramp(2, 2)}}, 4, true)
	require.NoError(t, err)
	_, err = ds.Get(1)
	assert.Error(t, err)
}
