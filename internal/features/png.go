package features

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
)

// Image renders s as grayscale, min-max normalised, with low frequencies at
// the bottom like a conventional spectrogram plot.
func (s *Spectrogram) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.Frames, s.Bands))
	lo, hi := s.MinMax()
	span := hi - lo

	for b := range s.Bands {
		for t := range s.Frames {
			v := 0.0
			if span > 0 {
				v = (s.At(b, t) - lo) / span
			}
			img.SetGray(t, s.Bands-b-1, color.Gray{Y: uint8(255 * v)})
		}
	}
	return img
}

// WritePNG writes the spectrogram image to path.
func WritePNG(path string, s *Spectrogram) error {
	f, err := os.Create(path) //nolint:gosec // G304: output path chosen by the caller
	if err != nil {
		return errors.New(err).
			Component("features").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}

	if err := png.Encode(f, s.Image()); err != nil {
		f.Close()
		return errors.New(err).
			Component("features").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}

	return f.Close()
}
