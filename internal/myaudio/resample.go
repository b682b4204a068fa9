package myaudio

import (
	"fmt"

	"github.com/faiface/beep"
)

// beepQuality is the interpolation window passed to beep.Resample.
const beepQuality = 4

// ResampleAudio resamples audio from originalRate to targetRate using cubic
// interpolation. Neighbours outside the clip are clamped to its edge samples.
// When downsampling the clip is low-passed below the target Nyquist first.
func ResampleAudio(audio []float32, originalRate, targetRate int) ([]float32, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", originalRate, targetRate)
	}
	if originalRate == targetRate || len(audio) == 0 {
		return audio, nil
	}

	audio = antiAlias(audio, originalRate, targetRate)

	ratio := float64(targetRate) / float64(originalRate)
	newLength := int(float64(len(audio)) * ratio)
	if newLength < 1 {
		newLength = 1
	}
	resampled := make([]float32, newLength)

	last := len(audio) - 1
	at := func(i int) float32 {
		if i < 0 {
			return audio[0]
		}
		if i > last {
			return audio[last]
		}
		return audio[i]
	}

	for i := range newLength {
		origPos := float64(i) / ratio
		index := int(origPos)
		frac := float32(origPos - float64(index))

		y0, y1, y2, y3 := at(index-1), at(index), at(index+1), at(index+2)
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2
		a3 := y1

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + a3
	}

	return resampled, nil
}

// sliceStreamer exposes a mono sample slice as a beep.Streamer.
type sliceStreamer struct {
	samples []float32
	pos     int
}

func (s *sliceStreamer) Stream(buf [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	for n < len(buf) && s.pos < len(s.samples) {
		v := float64(s.samples[s.pos])
		buf[n] = [2]float64{v, v}
		n++
		s.pos++
	}
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

// ResampleBeep resamples audio with beep's interpolating resampler, behind the
// same anti-alias filter as ResampleAudio.
func ResampleBeep(audio []float32, originalRate, targetRate int) ([]float32, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: %d -> %d", originalRate, targetRate)
	}
	if originalRate == targetRate || len(audio) == 0 {
		return audio, nil
	}

	filtered := antiAlias(audio, originalRate, targetRate)
	resampler := beep.Resample(beepQuality, beep.SampleRate(originalRate), beep.SampleRate(targetRate), &sliceStreamer{samples: filtered})

	expected := int(float64(len(audio)) * float64(targetRate) / float64(originalRate))
	out := make([]float32, 0, expected)
	buf := make([][2]float64, 512)
	for {
		n, ok := resampler.Stream(buf)
		for _, frame := range buf[:n] {
			out = append(out, float32(frame[0]))
		}
		if !ok {
			break
		}
	}
	if err := resampler.Err(); err != nil {
		return nil, err
	}

	if len(out) > expected && expected > 0 {
		out = out[:expected]
	}
	return out, nil
}
