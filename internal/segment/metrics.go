package segment

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Silhouette is the mean silhouette coefficient over all rows. Rows in a
// singleton cluster score 0. Fewer than two populated clusters yields 0.
func Silhouette(X [][]float64, labels []int, k int) float64 {
	sizes := clusterSizes(labels, k)
	populated := 0
	for _, s := range sizes {
		if s > 0 {
			populated++
		}
	}
	if populated < 2 {
		return 0
	}
	sum := 0.0
	dist := make([]float64, k)
	for i, x := range X {
		for c := range dist {
			dist[c] = 0
		}
		for j, y := range X {
			if i != j {
				dist[labels[j]] += floats.Distance(x, y, 2)
			}
		}
		own := labels[i]
		if sizes[own] <= 1 {
			continue
		}
		a := dist[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, d := range dist {
			if c != own && sizes[c] > 0 {
				b = math.Min(b, d/float64(sizes[c]))
			}
		}
		if m := math.Max(a, b); m > 0 {
			sum += (b - a) / m
		}
	}
	return sum / float64(len(X))
}

// DaviesBouldin is the mean, over populated clusters, of the worst ratio of
// summed within-cluster scatter to centroid separation. Lower is better.
func DaviesBouldin(X [][]float64, labels []int, centroids [][]float64) float64 {
	k := len(centroids)
	sizes := clusterSizes(labels, k)
	scatter := make([]float64, k)
	for i, x := range X {
		scatter[labels[i]] += floats.Distance(x, centroids[labels[i]], 2)
	}
	var live []int
	for c := range scatter {
		if sizes[c] > 0 {
			scatter[c] /= float64(sizes[c])
			live = append(live, c)
		}
	}
	if len(live) < 2 {
		return 0
	}
	total := 0.0
	for _, i := range live {
		worst := 0.0
		for _, j := range live {
			if i == j {
				continue
			}
			sep := floats.Distance(centroids[i], centroids[j], 2)
			if sep == 0 {
				continue
			}
			worst = math.Max(worst, (scatter[i]+scatter[j])/sep)
		}
		total += worst
	}
	return total / float64(len(live))
}

func clusterSizes(labels []int, k int) []int {
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes
}
