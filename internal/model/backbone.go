// Package model holds the frozen feature backbones and the trainable
// two-class linear head that together classify spectrogram images.
package model

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
)

// Backbone maps a batch of images to fixed-size embeddings. Backbones are
// frozen: Embed never changes their parameters.
type Backbone interface {
	// Name identifies the backbone and runtime in logs and the run journal.
	Name() string
	// FeatureDim is the embedding width, the in-features of the head.
	FeatureDim() int
	// Embed returns a batch x FeatureDim matrix, one row per image in batch order.
	Embed(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error)
	Close() error
}

// imageLayout describes how a runtime expects one image laid out.
type imageLayout int

const (
	layoutNCHW imageLayout = iota
	layoutNHWC
)

func (l imageLayout) String() string {
	if l == layoutNHWC {
		return "NHWC"
	}
	return "NCHW"
}

// detectLayout infers the layout from a 4-D input shape with 3 channels.
func detectLayout(dims []int) (imageLayout, error) {
	if len(dims) != 4 {
		return 0, fmt.Errorf("expected a 4-D image input, got shape %v", dims)
	}
	switch {
	case dims[1] == 3:
		return layoutNCHW, nil
	case dims[3] == 3:
		return layoutNHWC, nil
	default:
		return 0, fmt.Errorf("cannot find a 3-channel axis in input shape %v", dims)
	}
}

// sampleImage copies image i of batch into dst in the requested layout.
// The batch is always channels x size x size per image.
func sampleImage(dst []float32, batch *dataset.Batch, i int, layout imageLayout) {
	shape := batch.Images.Shape()
	c, h, w := shape[1], shape[2], shape[3]
	per := c * h * w
	src := batch.Float32s()[i*per : (i+1)*per]

	if layout == layoutNCHW {
		copy(dst, src)
		return
	}
	for ch := range c {
		for y := range h {
			for x := range w {
				dst[(y*w+x)*c+ch] = src[(ch*h+y)*w+x]
			}
		}
	}
}

// rowsToDense stacks per-sample embeddings into a matrix.
func rowsToDense(rows [][]float32) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	data := make([]float64, 0, len(rows)*dim)
	for _, r := range rows {
		for _, v := range r {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(len(rows), dim, data)
}
