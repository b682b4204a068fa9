package myaudio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
)

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestWriteAndReadWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	in := sine(440, 16000, 1600)
	require.NoError(t, WriteWAV(path, in, 16000))

	clip, err := ReadAudioFile(path)
	require.NoError(t, err)

	assert.Equal(t, 16000, clip.SampleRate)
	assert.Equal(t, 1, clip.NumChannels)
	assert.Equal(t, 16, clip.BitDepth)
	assert.Equal(t, "wav", clip.Format)
	require.Len(t, clip.Samples, len(in))
	for i := range in {
		assert.InDelta(t, in[i], clip.Samples[i], 1.0/32767)
	}
	assert.InDelta(t, 0.1, clip.Duration(), 1e-9)
}

func TestReadStereoWAVIsDownmixed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           []int{16384, 0, 16384, -16384, -16384, -16384},
		Format:         &audio.Format{SampleRate: 8000, NumChannels: 2},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	clip, err := ReadAudioFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, clip.NumChannels)
	require.Len(t, clip.Samples, 3)
	assert.InDelta(t, 0.25, clip.Samples[0], 1e-6)
	assert.InDelta(t, 0, clip.Samples[1], 1e-6)
	assert.InDelta(t, -0.5, clip.Samples[2], 1e-6)
}

// rawWAV builds a mono WAV file with the given fmt format tag and sample bytes.
func rawWAV(format, bitDepth uint16, rate uint32, data []byte) []byte {
	blockAlign := bitDepth / 8
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVEfmt ")
	for _, field := range []any{uint32(16), format, uint16(1), rate, rate * uint32(blockAlign), blockAlign, bitDepth} {
		_ = binary.Write(&buf, binary.LittleEndian, field)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func TestReadFloatWAV(t *testing.T) {
	t.Parallel()

	in := sine(440, 16000, 800)
	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, in))

	path := filepath.Join(t.TempDir(), "float.wav")
	require.NoError(t, os.WriteFile(path, rawWAV(wavFormatIEEEFloat, 32, 16000, data.Bytes()), 0o600))

	clip, err := ReadAudioFile(path)
	require.NoError(t, err)
	assert.Equal(t, 32, clip.BitDepth)
	require.Len(t, clip.Samples, len(in))
	for i := range in {
		assert.InDelta(t, in[i], clip.Samples[i], 1e-7)
	}
}

func TestReadWAVRejectsUnsupportedEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		format   uint16
		bitDepth uint16
	}{
		{"mu-law", 7, 8},
		{"a-law", 6, 8},
		{"adpcm", 2, 16},
		{"16-bit float", wavFormatIEEEFloat, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "encoded.wav")
			data := make([]byte, 64)
			require.NoError(t, os.WriteFile(path, rawWAV(tt.format, tt.bitDepth, 8000, data), 0o600))

			_, err := ReadAudioFile(path)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryAudioDecode))
		})
	}
}

func TestReadAudioFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("not a riff file at all"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.wav")},
		{"unsupported extension", filepath.Join(dir, "clip.aiff")},
		{"corrupt wav", garbage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadAudioFile(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoadResamplesToTarget(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, WriteWAV(path, sine(220, 16000, 16000), 16000))

	for _, resampler := range []string{conf.ResamplerCubic, conf.ResamplerBeep} {
		t.Run(resampler, func(t *testing.T) {
			t.Parallel()

			samples, err := Load(path, 32000, resampler)
			require.NoError(t, err)
			assert.InDelta(t, 32000, len(samples), 64)
		})
	}
}

func TestResampleAudio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		n          int
		from, to   int
		wantLength int
	}{
		{"upsample", 1000, 16000, 32000, 2000},
		{"downsample", 4410, 44100, 32000, 3200},
		{"identity", 100, 32000, 32000, 100},
		{"tiny clip", 2, 8000, 32000, 8},
		{"single sample", 1, 8000, 32000, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := ResampleAudio(sine(100, tt.from, tt.n), tt.from, tt.to)
			require.NoError(t, err)
			assert.Len(t, out, tt.wantLength)
		})
	}

	_, err := ResampleAudio([]float32{1}, 0, 32000)
	assert.Error(t, err)
}

func TestResampleAudioPreservesConstant(t *testing.T) {
	t.Parallel()

	in := make([]float32, 300)
	for i := range in {
		in[i] = 0.25
	}
	out, err := ResampleAudio(in, 22050, 32000)
	require.NoError(t, err)
	for _, v := range out {
		assert.InDelta(t, 0.25, v, 1e-6)
	}
}

// midRMS is the RMS over the middle half of samples, away from edge effects.
func midRMS(samples []float32) float64 {
	mid := samples[len(samples)/4 : 3*len(samples)/4]
	var sum float64
	for _, v := range mid {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(mid)))
}

func TestDownsamplingSuppressesAliases(t *testing.T) {
	t.Parallel()

	resamplers := map[string]func([]float32, int, int) ([]float32, error){
		conf.ResamplerCubic: ResampleAudio,
		conf.ResamplerBeep:  ResampleBeep,
	}
	tests := []struct {
		name     string
		freq     float64
		from, to int
		minRMS   float64
		maxRMS   float64
	}{
		// a 0.5 amplitude sine has RMS 0.354
		{"tone above target nyquist", 20000, 48000, 32000, 0, 0.02},
		{"tone above 16k nyquist", 10000, 44100, 16000, 0, 0.02},
		{"tone in passband", 1000, 48000, 32000, 0.33, 0.37},
	}

	for name, resample := range resamplers {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				t.Parallel()

				out, err := resample(sine(tt.freq, tt.from, tt.from/2), tt.from, tt.to)
				require.NoError(t, err)
				rms := midRMS(out)
				assert.GreaterOrEqual(t, rms, tt.minRMS)
				assert.LessOrEqual(t, rms, tt.maxRMS)
			})
		}
	}
}

func TestLowPassKernel(t *testing.T) {
	t.Parallel()

	kernel := lowPassKernel(2.0 / 3.0)
	require.Equal(t, 1, len(kernel)%2)

	var sum float64
	for i, v := range kernel {
		sum += v
		assert.InDelta(t, v, kernel[len(kernel)-1-i], 1e-12, "kernel is symmetric")
	}
	assert.InDelta(t, 1, sum, 1e-12)

	// constants survive filtering, edges included
	in := make([]float32, 50)
	for i := range in {
		in[i] = 0.25
	}
	for _, v := range convolveSame(in, kernel) {
		assert.InDelta(t, 0.25, v, 1e-6)
	}
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float32{1, 2}, downmix([]float32{1, 2}, 1))
	assert.Equal(t, []float32{1.5, -1}, downmix([]float32{1, 2, -1, -1}, 2))
	assert.Equal(t, []float32{1}, downmix([]float32{0, 1, 2, 9}, 3), "a trailing partial frame is dropped")
}

func TestSupportedExtensions(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []string{".wav", ".wave", ".flac", ".mp3", ".ogg", ".oga"}, SupportedExtensions())
}
