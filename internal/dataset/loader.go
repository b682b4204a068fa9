package dataset

import (
	"context"
	"math/rand/v2"

	"gorgonia.org/tensor"
)

// Batch is a stacked group of samples.
type Batch struct {
	Indices []int
	Images  *tensor.Dense // batch x channels x size x size
	Labels  []int         // nil for unlabelled datasets
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int { return len(b.Indices) }

// Float32s returns the batch pixels in row-major order.
func (b *Batch) Float32s() []float32 {
	return b.Images.Data().([]float32)
}

// Loader iterates a dataset in batches. A shuffling loader draws a new
// permutation from its seeded generator on every epoch; otherwise batches
// follow dataset order.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewLoader creates a loader. batchSize values below one are treated as one.
func NewLoader(ds *Dataset, batchSize int, shuffle bool, seed uint64) *Loader {
	return &Loader{
		ds:        ds,
		batchSize: max(batchSize, 1),
		shuffle:   shuffle,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Dataset returns the underlying dataset.
func (l *Loader) Dataset() *Dataset { return l.ds }

// BatchSize returns the largest number of rows in a batch.
func (l *Loader) BatchSize() int { return l.batchSize }

// Len returns the number of batches per epoch.
func (l *Loader) Len() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Epoch returns the index batches of the next epoch.
func (l *Loader) Epoch() [][]int {
	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.shuffle {
		l.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	batches := make([][]int, 0, l.Len())
	for start := 0; start < len(order); start += l.batchSize {
		end := min(start+l.batchSize, len(order))
		batches = append(batches, order[start:end])
	}
	return batches
}

// Load transforms and stacks the samples at indices.
func (l *Loader) Load(ctx context.Context, indices []int) (*Batch, error) {
	shape := l.ds.ImageShape()
	per := shape.TotalSize()
	data := make([]float32, 0, per*len(indices))

	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := l.ds.Get(i)
		if err != nil {
			return nil, err
		}
		data = append(data, s.Image.Data().([]float32)...)
	}

	return &Batch{
		Indices: indices,
		Images:  tensor.New(tensor.WithShape(len(indices), shape[0], shape[1], shape[2]), tensor.WithBacking(data)),
		Labels:  l.ds.Labels(indices),
	}, nil
}
