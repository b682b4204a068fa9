package trainer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Softmax returns the row-wise softmax of logits.
func Softmax(logits *mat.Dense) *mat.Dense {
	r, c := logits.Dims()
	out := mat.NewDense(r, c, nil)
	for i := range r {
		row := out.RawRowView(i)
		copy(row, logits.RawRowView(i))
		softmaxInPlace(row)
	}
	return out
}

func softmaxInPlace(row []float64) {
	peak := floats.Max(row)
	var sum float64
	for j, v := range row {
		row[j] = math.Exp(v - peak)
		sum += row[j]
	}
	floats.Scale(1/sum, row)
}

// CrossEntropy returns the mean softmax cross-entropy of logits against the
// integer labels. Training differentiates the same quantity on the head graph.
func CrossEntropy(logits *mat.Dense, labels []int) (float64, error) {
	r, c := logits.Dims()
	if r != len(labels) {
		return 0, fmt.Errorf("%d logit rows for %d labels", r, len(labels))
	}

	var loss float64
	for i, y := range labels {
		if y < 0 || y >= c {
			return 0, fmt.Errorf("label %d out of range for %d classes", y, c)
		}
		loss -= logSoftmax(logits.RawRowView(i), y)
	}
	return loss / float64(r), nil
}

// logSoftmax computes log(softmax(row)[k]) with the log-sum-exp shift.
func logSoftmax(row []float64, k int) float64 {
	return row[k] - floats.LogSumExp(row)
}
