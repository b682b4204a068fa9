package features

import "math"

const (
	DefaultAmin  = 1e-10
	DefaultTopDB = 80.0
)

// PowerToDB converts a power spectrogram to decibels referenced to its own
// peak: 10*log10(max(amin, S)) - 10*log10(max(amin, max S)), then clamps
// everything more than topDB below the peak. A topDB <= 0 disables clamping.
// The input is not modified.
func PowerToDB(s *Spectrogram, amin, topDB float64) *Spectrogram {
	out := &Spectrogram{Bands: s.Bands, Frames: s.Frames, Data: make([]float64, len(s.Data))}
	if len(s.Data) == 0 {
		return out
	}

	_, peak := s.MinMax()
	ref := 10 * math.Log10(max(amin, peak))

	top := math.Inf(-1)
	for i, v := range s.Data {
		db := 10*math.Log10(max(amin, v)) - ref
		out.Data[i] = db
		top = max(top, db)
	}

	if topDB > 0 {
		floor := top - topDB
		for i, v := range out.Data {
			out.Data[i] = max(v, floor)
		}
	}
	return out
}
