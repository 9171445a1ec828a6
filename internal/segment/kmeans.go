package segment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeansOptions controls one clustering fit.
type KMeansOptions struct {
	// NInit is the number of k-means++ restarts; the lowest inertia wins.
	NInit   int
	MaxIter int
	Seed    int64
	// Tol stops iterating once no centroid moves further than this.
	Tol float64
}

// Model is a fitted clustering.
type Model struct {
	K         int
	Centroids [][]float64
	Labels    []int
	Inertia   float64
	Iter      int
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// KMeans clusters X into k groups. The result depends only on X, k and
// opt, never on scheduling.
func KMeans(X [][]float64, k int, opt KMeansOptions) (Model, error) {
	if k < 1 {
		return Model{}, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(X) < k {
		return Model{}, fmt.Errorf("%w: %d rows for k=%d", ErrTooFewRows, len(X), k)
	}
	if opt.NInit < 1 {
		opt.NInit = 1
	}
	if opt.MaxIter < 1 {
		opt.MaxIter = 300
	}
	rng := rand.New(rand.NewSource(opt.Seed))
	var best Model
	for run := 0; run < opt.NInit; run++ {
		m := lloyd(X, seedCentroids(X, k, rng), opt)
		if run == 0 || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// seedCentroids picks k starting points with k-means++: each next centre is
// drawn with probability proportional to its squared distance from the
// nearest centre already chosen.
func seedCentroids(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centres := make([][]float64, 0, k)
	centres = append(centres, clone(X[rng.Intn(len(X))]))
	d2 := make([]float64, len(X))
	for i, x := range X {
		d2[i] = sqDist(x, centres[0])
	}
	for len(centres) < k {
		total := floats.Sum(d2)
		next := 0
		if total == 0 {
			next = rng.Intn(len(X))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		}
		c := clone(X[next])
		centres = append(centres, c)
		for i, x := range X {
			if d := sqDist(x, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centres
}

func lloyd(X [][]float64, centres [][]float64, opt KMeansOptions) Model {
	k, dim := len(centres), len(X[0])
	labels := make([]int, len(X))
	m := Model{K: k}
	for iter := 1; iter <= opt.MaxIter; iter++ {
		m.Iter = iter
		assign(X, centres, labels)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, x := range X {
			floats.Add(next[labels[i]], x)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// Re-seed an empty cluster at the point furthest from its centre.
				far, farD := 0, -1.0
				for i, x := range X {
					if d := sqDist(x, centres[labels[i]]); d > farD {
						far, farD = i, d
					}
				}
				copy(next[c], X[far])
				labels[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range centres {
			shift = math.Max(shift, sqDist(centres[c], next[c]))
		}
		centres = next
		if shift <= opt.Tol*opt.Tol {
			break
		}
	}
	m.Inertia = assign(X, centres, labels)
	m.Centroids = centres
	m.Labels = labels
	return m
}

// assign labels every row with its nearest centre (lowest index on ties)
// and returns the inertia.
func assign(X, centres [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, x := range X {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centres {
			if d := sqDist(x, ctr); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
