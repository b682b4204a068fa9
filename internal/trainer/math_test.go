package trainer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/model"
)

func TestAUC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		labels []int
		scores []float64 // n x 2
		want   float64
	}{
		{
			name:   "perfect separation",
			labels: []int{0, 0, 1, 1},
			scores: []float64{0.9, 0.1, 0.8, 0.2, 0.3, 0.7, 0.1, 0.9},
			want:   1,
		},
		{
			name:   "perfectly inverted",
			labels: []int{0, 0, 1, 1},
			scores: []float64{0.1, 0.9, 0.2, 0.8, 0.7, 0.3, 0.9, 0.1},
			want:   0,
		},
		{
			name:   "all tied",
			labels: []int{0, 1, 0, 1},
			scores: []float64{1, 1, 1, 1, 1, 1, 1, 1},
			want:   0.5,
		},
		{
			// column 0 ranks one pair wrong, column 1 ranks all correctly
			name:   "directed aucs averaged",
			labels: []int{0, 0, 1, 1},
			scores: []float64{0.9, 0, 0.4, 0, 0.5, 1, 0.1, 1.5},
			want:   (0.75 + 1) / 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AUC(tt.labels, mat.NewDense(len(tt.labels), 2, tt.scores))
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAUCMissingClassIsNaN(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsNaN(AUC([]int{1, 1}, mat.NewDense(2, 2, []float64{0, 1, 1, 0}))))
	assert.True(t, math.IsNaN(AUC(nil, nil)))
}

func TestAUCRandomIsAboutHalf(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	n := 4000
	labels := make([]int, n)
	scores := make([]float64, 2*n)
	for i := range n {
		labels[i] = i % 2
		scores[2*i] = rng.Float64()
		scores[2*i+1] = rng.Float64()
	}
	assert.InDelta(t, 0.5, AUC(labels, mat.NewDense(n, 2, scores)), 0.03)
}

func TestCrossEntropy(t *testing.T) {
	t.Parallel()

	logits := mat.NewDense(2, 2, []float64{0, 0, 2, 0})
	loss, err := CrossEntropy(logits, []int{0, 1})
	require.NoError(t, err)

	want := (math.Log(2) + (2 + math.Log(1+math.Exp(-2)))) / 2
	assert.InDelta(t, want, loss, 1e-12)

	_, err = CrossEntropy(logits, []int{0})
	assert.Error(t, err)
	_, err = CrossEntropy(logits, []int{0, 2})
	assert.Error(t, err)
}

func TestSoftmaxLargeLogits(t *testing.T) {
	t.Parallel()

	s := Softmax(mat.NewDense(1, 2, []float64{1000, 1000}))
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, s.RawRowView(0), 1e-12)
}

// analyticGrad returns dLoss/dPacked for the mean softmax cross-entropy.
func analyticGrad(h *model.Head, x *mat.Dense, labels []int) []float64 {
	logits, _ := h.Forward(x)
	probs := Softmax(logits)
	n, in := x.Dims()
	grad := make([]float64, (in+1)*2)
	for i, y := range labels {
		for k := range 2 {
			d := probs.At(i, k)
			if k == y {
				d--
			}
			d /= float64(n)
			for j := range in {
				grad[j*2+k] += d * x.At(i, j)
			}
			grad[in*2+k] += d
		}
	}
	return grad
}

func TestHeadGraphStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		batch int
	}{
		{"full batch", 3},
		{"padded batch", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			head := model.NewHead(4, 2, 3)
			x := mat.NewDense(3, 4, []float64{
				0.5, -1, 2, 0,
				1, 1, -0.5, 0.25,
				-2, 0, 1, 1,
			})
			labels := []int{1, 0, 1}

			logits, err := head.Forward(x)
			require.NoError(t, err)
			want, err := CrossEntropy(logits, labels)
			require.NoError(t, err)
			grad := analyticGrad(head, x, labels)
			before := head.Packed()

			const lr = 0.01
			graph, err := newHeadGraph(head, tt.batch, lr)
			require.NoError(t, err)
			defer graph.Close()

			loss, err := graph.step(x, labels)
			require.NoError(t, err)
			assert.InDelta(t, want, loss, 1e-9)

			// the first Adam step moves each parameter against its gradient by at least lr
			after := head.Packed()
			for i := range before {
				if math.Abs(grad[i]) < 1e-9 {
					continue
				}
				delta := after[i] - before[i]
				assert.Equal(t, math.Signbit(grad[i]), !math.Signbit(delta), "param %d", i)
				assert.GreaterOrEqual(t, math.Abs(delta), 0.99*lr, "param %d", i)
			}

			next, err := graph.step(x, labels)
			require.NoError(t, err)
			assert.Less(t, next, loss)
		})
	}
}

func TestHeadGraphRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := newHeadGraph(model.NewHead(4, 3, 1), 2, 0.1)
	assert.Error(t, err)

	graph, err := newHeadGraph(model.NewHead(2, 2, 1), 2, 0.1)
	require.NoError(t, err)
	defer graph.Close()

	_, err = graph.step(mat.NewDense(3, 2, nil), []int{0, 1, 0})
	assert.Error(t, err, "more rows than the graph batch")
	_, err = graph.step(mat.NewDense(1, 3, nil), []int{0})
	assert.Error(t, err, "wrong feature width")
	_, err = graph.step(mat.NewDense(1, 2, nil), []int{2})
	assert.Error(t, err, "label out of range")
}
