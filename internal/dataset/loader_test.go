package dataset

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/features"
)

func makeDataset(t *testing.T, n int, labelled bool) *Dataset {
	t.Helper()
	set := &features.Set{}
	for i := range n {
		set.Features = append(set.Features, constant(4, 3, float64(i)))
		if labelled {
			set.Labels = append(set.Labels, i%2)
		}
	}
	ds, err := New(set, 4, true)
	require.NoError(t, err)
	return ds
}

func flatten(batches [][]int) []int {
	var out []int
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func TestLoaderInOrder(t *testing.T) {
	t.Parallel()

	l := NewLoader(makeDataset(t, 10, false), 4, false, 42)
	batches := l.Epoch()

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9}}, batches)
	assert.Equal(t, batches, l.Epoch(), "unshuffled loaders repeat the same order")
}

func TestLoaderShufflesEachEpoch(t *testing.T) {
	t.Parallel()

	l := NewLoader(makeDataset(t, 64, true), 8, true, 42)
	first := flatten(l.Epoch())
	second := flatten(l.Epoch())

	assert.NotEqual(t, first, second)
	for _, order := range [][]int{first, second} {
		sorted := slices.Clone(order)
		slices.Sort(sorted)
		for i, v := range sorted {
			require.Equal(t, i, v, "each epoch is a permutation")
		}
	}

	again := NewLoader(makeDataset(t, 64, true), 8, true, 42)
	assert.Equal(t, first, flatten(again.Epoch()), "same seed, same order")
}

func TestLoaderLoadStacksBatch(t *testing.T) {
	t.Parallel()

	l := NewLoader(makeDataset(t, 5, true), 2, false, 1)
	b, err := l.Load(context.Background(), []int{3, 1})
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3, 4, 4}, b.Images.Shape())
	assert.Equal(t, []int{1, 1}, b.Labels)
	assert.Equal(t, 2, b.Size())

	data := b.Float32s()
	assert.InDelta(t, 3, data[0], 1e-6, "first sample is index 3")
	assert.InDelta(t, 1, data[3*16], 1e-6, "second sample is index 1")
}

func TestLoaderLoadUnlabelled(t *testing.T) {
	t.Parallel()

	l := NewLoader(makeDataset(t, 3, false), 8, false, 1)
	b, err := l.Load(context.Background(), []int{0, 1, 2})
	require.NoError(t, err)
	assert.Nil(t, b.Labels)
}

func TestLoaderLoadCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(makeDataset(t, 3, false), 8, false, 1).Load(ctx, []int{0})
	assert.ErrorIs(t, err, context.Canceled)
}
