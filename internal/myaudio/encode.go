package myaudio

import (
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
)

// WriteWAV writes mono samples in [-1, 1] as a 16-bit PCM WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	file, err := os.Create(path) //nolint:gosec // G304: caller controls the output path
	if err != nil {
		return errors.New(err).
			Component("myaudio").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32767)
		data[i] = int(max(-32768, min(32767, v)))
	}

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		file.Close()
		return errors.New(err).Component("myaudio").Category(errors.CategoryFileIO).FileContext(path, 0).Build()
	}
	if err := encoder.Close(); err != nil {
		file.Close()
		return errors.New(err).Component("myaudio").Category(errors.CategoryFileIO).FileContext(path, 0).Build()
	}
	return file.Close()
}
