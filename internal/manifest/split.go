package manifest

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// splitEpsilon keeps ceil(0.2*10) at 2 despite binary rounding of the fraction.
const splitEpsilon = 1e-9

// ValidationSize returns ceil(fraction*n).
func ValidationSize(n int, fraction float64) int {
	return int(math.Ceil(fraction*float64(n) - splitEpsilon))
}

// Split partitions m into train and validation manifests stratified by label.
// The validation partition holds ValidationSize(n, fraction) rows, allocated
// across labels by largest remainder. Both partitions keep manifest order and
// together cover m exactly once. The same seed always yields the same split.
func Split(m *Manifest, fraction float64, seed uint64) (train, val *Manifest, err error) {
	n := m.Len()
	nVal := ValidationSize(n, fraction)
	if n == 0 || nVal <= 0 || nVal >= n {
		return nil, nil, errors.Newf("cannot split %d rows with validation fraction %g", n, fraction).
			Component("manifest").
			Category(errors.CategoryValidation).
			Context("rows", n).
			Context("validation_rows", nVal).
			Build()
	}

	groups := make(map[string][]int)
	var labels []string
	for i := range m.Rows {
		l := m.Rows[i].Label
		if _, ok := groups[l]; !ok {
			labels = append(labels, l)
		}
		groups[l] = append(groups[l], i)
	}
	sort.Strings(labels)

	quota := allocate(labels, groups, n, nVal)

	rng := rand.New(rand.NewPCG(seed, seed))
	isVal := make([]bool, n)
	for _, l := range labels {
		idx := slices.Clone(groups[l])
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for _, i := range idx[:quota[l]] {
			isVal[i] = true
		}
	}

	train = &Manifest{Source: m.Source, Header: m.Header}
	val = &Manifest{Source: m.Source, Header: m.Header}
	for i := range m.Rows {
		if isVal[i] {
			val.Rows = append(val.Rows, m.Rows[i])
		} else {
			train.Rows = append(train.Rows, m.Rows[i])
		}
	}

	GetLogger().Info("manifest split",
		logger.Int("train", train.Len()),
		logger.Int("validation", val.Len()),
		logger.Int("labels", len(labels)),
		logger.Uint64("seed", seed))

	return train, val, nil
}

// allocate distributes nVal slots over labels proportionally to class size,
// giving leftover slots to the largest fractional remainders.
func allocate(labels []string, groups map[string][]int, n, nVal int) map[string]int {
	type share struct {
		label     string
		remainder float64
	}

	quota := make(map[string]int, len(labels))
	shares := make([]share, 0, len(labels))
	assigned := 0
	for _, l := range labels {
		exact := float64(nVal) * float64(len(groups[l])) / float64(n)
		q := int(math.Floor(exact + splitEpsilon))
		quota[l] = q
		assigned += q
		shares = append(shares, share{label: l, remainder: exact - float64(q)})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder > shares[j].remainder
	})
	for i := 0; assigned < nVal; i = (i + 1) % len(shares) {
		l := shares[i].label
		if quota[l] < len(groups[l]) {
			quota[l]++
			assigned++
		}
	}

	return quota
}
