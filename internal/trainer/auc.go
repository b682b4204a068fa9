package trainer

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// AUC is the one-vs-one multi-class ROC AUC of Hand and Till: for every
// unordered class pair (a, b) it averages the AUC of a-vs-b scored by column a
// and of b-vs-a scored by column b, then averages over pairs. Ties count one
// half. Pairs where either class is absent are skipped; with no usable pair
// the result is NaN.
func AUC(labels []int, scores *mat.Dense) float64 {
	if scores == nil || len(labels) == 0 {
		return math.NaN()
	}
	_, classes := scores.Dims()

	var sum float64
	pairs := 0
	for a := range classes {
		for b := a + 1; b < classes; b++ {
			ab := binaryAUC(labels, scores, a, b)
			ba := binaryAUC(labels, scores, b, a)
			if math.IsNaN(ab) || math.IsNaN(ba) {
				continue
			}
			sum += (ab + ba) / 2
			pairs++
		}
	}
	if pairs == 0 {
		return math.NaN()
	}
	return sum / float64(pairs)
}

// binaryAUC restricts the samples to classes pos and neg and returns the
// probability that a random pos sample outscores a random neg sample on
// column pos, computed from average ranks (Mann-Whitney U).
func binaryAUC(labels []int, scores *mat.Dense, pos, neg int) float64 {
	type scored struct {
		score float64
		pos   bool
	}
	var items []scored
	nPos, nNeg := 0, 0
	for i, y := range labels {
		switch y {
		case pos:
			items = append(items, scored{scores.At(i, pos), true})
			nPos++
		case neg:
			items = append(items, scored{scores.At(i, pos), false})
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return math.NaN()
	}

	slices.SortFunc(items, func(x, y scored) int {
		switch {
		case x.score < y.score:
			return -1
		case x.score > y.score:
			return 1
		}
		return 0
	})

	// sum of 1-based ranks of the positives, ties share their mean rank
	var rankSum float64
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].score == items[i].score {
			j++
		}
		mean := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			if items[k].pos {
				rankSum += mean
			}
		}
		i = j
	}

	u := rankSum - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg)
}
