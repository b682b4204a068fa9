package dataset

import (
	"math"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/features"
)

// tap is one input index and its interpolation weight.
type tap struct {
	index  int
	weight float32
}

// axisWeights computes, for every output position, the input taps of a
// bilinear resize from inSize to outSize using half-pixel centres.
// With antialias the triangle kernel is widened by the downscale factor,
// matching torchvision's antialiased bilinear resize; without it the two
// nearest inputs are blended with edge clamping.
func axisWeights(inSize, outSize int, antialias bool) [][]tap {
	scale := float64(inSize) / float64(outSize)
	out := make([][]tap, outSize)

	if !antialias {
		for i := range out {
			src := (float64(i)+0.5)*scale - 0.5
			src = max(src, 0)
			i0 := min(int(math.Floor(src)), inSize-1)
			i1 := min(i0+1, inSize-1)
			l := float32(src - float64(i0))
			if i0 == i1 {
				out[i] = []tap{{i0, 1}}
				continue
			}
			out[i] = []tap{{i0, 1 - l}, {i1, l}}
		}
		return out
	}

	filterScale := max(scale, 1)
	support := filterScale
	for i := range out {
		center := (float64(i) + 0.5) * scale
		lo := max(int(center-support+0.5), 0)
		hi := min(int(center+support+0.5), inSize)

		var taps []tap
		var total float64
		for x := lo; x < hi; x++ {
			w := 1 - math.Abs((float64(x)-center+0.5)/filterScale)
			if w <= 0 {
				continue
			}
			taps = append(taps, tap{x, float32(w)})
			total += w
		}
		if total == 0 {
			taps = []tap{{min(int(center), inSize-1), 1}}
			total = 1
		}
		for k := range taps {
			taps[k].weight /= float32(total)
		}
		out[i] = taps
	}
	return out
}

// Resize resamples a Bands x Frames spectrogram to a size x size float32
// image, row-major with bands as rows.
func Resize(s *features.Spectrogram, size int, antialias bool) []float32 {
	colTaps := axisWeights(s.Frames, size, antialias)
	rowTaps := axisWeights(s.Bands, size, antialias)

	// horizontal pass: Bands x size
	tmp := make([]float32, s.Bands*size)
	for b := range s.Bands {
		row := s.Data[b*s.Frames : (b+1)*s.Frames]
		for x, taps := range colTaps {
			var v float32
			for _, tp := range taps {
				v += float32(row[tp.index]) * tp.weight
			}
			tmp[b*size+x] = v
		}
	}

	// vertical pass: size x size
	out := make([]float32, size*size)
	for y, taps := range rowTaps {
		for x := range size {
			var v float32
			for _, tp := range taps {
				v += tmp[tp.index*size+x] * tp.weight
			}
			out[y*size+x] = v
		}
	}
	return out
}

// ToImage resizes s and replicates it into channels identical planes,
// returning channels x size x size values.
func ToImage(s *features.Spectrogram, size, channels int, antialias bool) []float32 {
	plane := Resize(s, size, antialias)
	out := make([]float32, 0, channels*len(plane))
	for range channels {
		out = append(out, plane...)
	}
	return out
}
