// Package dataset presents extracted spectrograms as fixed-size image
// tensors and batches them for training and inference.
package dataset

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/features"
)

// Sample is one transformed item. Label is meaningful only when HasLabel is set.
type Sample struct {
	Image    *tensor.Dense // channels x size x size
	Label    int
	HasLabel bool
}

// Dataset wraps features and optional labels. Transforms run on access.
type Dataset struct {
	features  []*features.Spectrogram
	labels    []int
	size      int
	channels  int
	antialias bool
}

// New wraps set. A nil set.Labels yields an unlabelled dataset.
func New(set *features.Set, size int, antialias bool) (*Dataset, error) {
	if set.Labels != nil && len(set.Labels) != len(set.Features) {
		return nil, fmt.Errorf("dataset has %d features but %d labels", len(set.Features), len(set.Labels))
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid image size %d", size)
	}
	return &Dataset{
		features:  set.Features,
		labels:    set.Labels,
		size:      size,
		channels:  conf.ImageChannel,
		antialias: antialias,
	}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.features) }

// Labelled reports whether samples carry labels.
func (d *Dataset) Labelled() bool { return d.labels != nil }

// ImageShape returns (channels, size, size).
func (d *Dataset) ImageShape() tensor.Shape {
	return tensor.Shape{d.channels, d.size, d.size}
}

// Get transforms sample i.
func (d *Dataset) Get(i int) (Sample, error) {
	if i < 0 || i >= d.Len() {
		return Sample{}, fmt.Errorf("index %d out of range [0, %d)", i, d.Len())
	}

	data := ToImage(d.features[i], d.size, d.channels, d.antialias)
	s := Sample{
		Image: tensor.New(tensor.WithShape(d.channels, d.size, d.size), tensor.WithBacking(data)),
	}
	if d.labels != nil {
		s.Label = d.labels[i]
		s.HasLabel = true
	}
	return s, nil
}

// Labels returns the labels of the given indices, or nil for an unlabelled dataset.
func (d *Dataset) Labels(indices []int) []int {
	if d.labels == nil {
		return nil
	}
	out := make([]int, len(indices))
	for k, i := range indices {
		out[k] = d.labels[i]
	}
	return out
}
