// Package evaluation holds dataset splitting and the classification and
// regression metrics recorded with every training run.
package evaluation

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets keeping
// the class balance of y. Each class with at least two rows contributes at
// least one row to both sides.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	for _, idx := range classIndices(y) {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(testSize * float64(len(idx))))
		if len(idx) >= 2 {
			if nTest == 0 {
				nTest = 1
			}
			if nTest == len(idx) {
				nTest = len(idx) - 1
			}
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// StratifiedKFold returns k disjoint test folds covering every index, each
// class dealt round-robin across folds after a seeded shuffle.
func StratifiedKFold(y []int, k int, seed int64) [][]int {
	if k < 2 {
		k = 2
	}
	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, k)
	offset := 0
	for _, idx := range classIndices(y) {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for i, row := range idx {
			f := (offset + i) % k
			folds[f] = append(folds[f], row)
		}
		offset += len(idx)
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds
}

// Complement returns the indices in [0, n) not present in fold.
func Complement(n int, fold []int) []int {
	in := make(map[int]struct{}, len(fold))
	for _, i := range fold {
		in[i] = struct{}{}
	}
	out := make([]int, 0, n-len(fold))
	for i := 0; i < n; i++ {
		if _, ok := in[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// Subset picks y at the given indices.
func Subset[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

// classIndices groups indices by class, ordered by class value.
func classIndices(y []int) [][]int {
	byClass := make(map[int][]int)
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	out := make([][]int, len(classes))
	for i, c := range classes {
		out[i] = byClass[c]
	}
	return out
}

// CountClasses returns (positives, negatives) for a binary target.
func CountClasses(y []int) (int, int) {
	pos := 0
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	return pos, len(y) - pos
}
