package myaudio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// AudioInfo describes the source stream of a decoded clip.
type AudioInfo struct {
	SampleRate  int
	NumChannels int
	BitDepth    int
	Format      string
}

// Clip is a decoded mono clip.
type Clip struct {
	AudioInfo
	Samples []float32
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

type decodeFunc func(file *os.File) (*Clip, error)

var decoders = map[string]decodeFunc{
	".wav":  readWAV,
	".wave": readWAV,
	".flac": readFLAC,
	".mp3":  readMP3,
	".ogg":  readOGG,
	".oga":  readOGG,
}

// SupportedExtensions returns the file extensions ReadAudioFile can decode.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	return exts
}

// ReadAudioFile decodes path at its native sample rate, down-mixed to mono.
func ReadAudioFile(path string) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, errors.Newf("unsupported audio format %q", ext).
			Component("myaudio").
			Category(errors.CategoryAudioDecode).
			Context("file_path", path).
			Build()
	}

	file, err := os.Open(path) //nolint:gosec // G304: paths come from the manifest
	if err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	clip, err := decode(file)
	if err != nil {
		var size int64
		if fi, statErr := file.Stat(); statErr == nil {
			size = fi.Size()
		}
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryAudioDecode).
			FileContext(path, size).
			Context("format", ext).
			Build()
	}
	clip.Format = strings.TrimPrefix(ext, ".")

	GetLogger().Trace("audio decoded",
		logger.String("path", path),
		logger.Int("sample_rate", clip.SampleRate),
		logger.Int("channels", clip.NumChannels),
		logger.Int("samples", len(clip.Samples)))

	return clip, nil
}

// Load decodes path and resamples it to targetRate with the configured resampler.
func Load(path string, targetRate int, resampler string) ([]float32, error) {
	clip, err := ReadAudioFile(path)
	if err != nil {
		return nil, err
	}
	if len(clip.Samples) == 0 {
		return nil, errors.Newf("audio file contains no samples").
			Component("myaudio").
			Category(errors.CategoryAudioDecode).
			Context("file_path", path).
			Build()
	}

	var samples []float32
	switch resampler {
	case conf.ResamplerBeep:
		samples, err = ResampleBeep(clip.Samples, clip.SampleRate, targetRate)
	default:
		samples, err = ResampleAudio(clip.Samples, clip.SampleRate, targetRate)
	}
	if err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryAudioDecode).
			Context("file_path", path).
			Context("source_rate", clip.SampleRate).
			Context("target_rate", targetRate).
			Build()
	}
	return samples, nil
}

// getAudioDivisor returns the scale that maps signed PCM of bitDepth to [-1, 1].
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported audio bit depth: %d", bitDepth).
			Component("myaudio").
			Category(errors.CategoryAudioDecode).
			Build()
	}
}

// downmix averages interleaved channels into one.
func downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	scale := 1 / float32(channels)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum * scale
	}
	return mono
}
