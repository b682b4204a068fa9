package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Head is a fully connected layer mapping embeddings to class logits.
type Head struct {
	W *mat.Dense // classes x in
	B []float64  // classes
}

// NewHead initialises a head with weights and biases drawn uniformly from
// [-1/sqrt(in), 1/sqrt(in)].
func NewHead(in, classes int, seed uint64) *Head {
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	bound := 1 / math.Sqrt(float64(in))
	uniform := func() float64 { return (rng.Float64()*2 - 1) * bound }

	w := make([]float64, classes*in)
	for i := range w {
		w[i] = uniform()
	}
	b := make([]float64, classes)
	for i := range b {
		b[i] = uniform()
	}
	return &Head{W: mat.NewDense(classes, in, w), B: b}
}

// In returns the input width.
func (h *Head) In() int {
	_, c := h.W.Dims()
	return c
}

// Classes returns the number of output logits.
func (h *Head) Classes() int { return len(h.B) }

// Forward computes x·Wᵀ + b for a batch of embeddings.
func (h *Head) Forward(x *mat.Dense) (*mat.Dense, error) {
	n, in := x.Dims()
	if in != h.In() {
		return nil, fmt.Errorf("head expects %d features, got %d", h.In(), in)
	}
	logits := mat.NewDense(n, h.Classes(), nil)
	logits.Mul(x, h.W.T())
	for i := range n {
		floats.Add(logits.RawRowView(i), h.B)
	}
	return logits, nil
}

// Packed returns the parameters as an (in+1) x classes row-major matrix: row j
// holds the weights of input j for every class and the last row holds the biases.
func (h *Head) Packed() []float64 {
	in, classes := h.In(), h.Classes()
	out := make([]float64, (in+1)*classes)
	for k := range classes {
		for j := range in {
			out[j*classes+k] = h.W.At(k, j)
		}
		out[in*classes+k] = h.B[k]
	}
	return out
}

// Unpack overwrites the parameters from the layout produced by Packed.
func (h *Head) Unpack(packed []float64) error {
	in, classes := h.In(), h.Classes()
	if len(packed) != (in+1)*classes {
		return fmt.Errorf("packed head has %d values, want %d", len(packed), (in+1)*classes)
	}
	for k := range classes {
		for j := range in {
			h.W.Set(k, j, packed[j*classes+k])
		}
		h.B[k] = packed[in*classes+k]
	}
	return nil
}

// Clone returns an independent copy of the head.
func (h *Head) Clone() *Head {
	return &Head{W: mat.DenseCopyOf(h.W), B: append([]float64(nil), h.B...)}
}
