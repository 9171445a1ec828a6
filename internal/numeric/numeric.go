// Package numeric holds the small statistical helpers shared by the
// remediation and segmentation engines.
package numeric

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile (0..1) of vals using linear
// interpolation between closest ranks. vals is not modified.
func Quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantileSorted(cp, q)
}

// Quartiles returns Q1 and Q3 of vals.
func Quartiles(vals []float64) (q1, q3 float64) {
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantileSorted(cp, 0.25), quantileSorted(cp, 0.75)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Round rounds x to dp decimal places, halves away from zero.
func Round(x float64, dp int) float64 {
	p := math.Pow(10, float64(dp))
	return math.Round(x*p) / p
}

// Mode returns the most frequent item. Ties go to the item seen first.
// ok is false when items is empty.
func Mode[T comparable](items []T) (mode T, ok bool) {
	counts := make(map[T]int, len(items))
	order := make([]T, 0)
	for _, it := range items {
		if _, seen := counts[it]; !seen {
			order = append(order, it)
		}
		counts[it]++
	}
	best := 0
	for _, it := range order {
		if c := counts[it]; c > best {
			best = c
			mode = it
			ok = true
		}
	}
	return mode, ok
}
