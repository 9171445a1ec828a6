package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs returns three tight, well separated groups of n points each.
func blobs(n int) [][]float64 {
	centres := [][2]float64{{0, 0}, {10, 10}, {-10, 10}}
	var X [][]float64
	for _, c := range centres {
		for i := 0; i < n; i++ {
			dx := float64(i%3) * 0.1
			dy := float64(i%4) * 0.1
			X = append(X, []float64{c[0] + dx, c[1] + dy})
		}
	}
	return X
}

func TestKMeansRecoversBlobs(t *testing.T) {
	X := blobs(10)
	m, err := KMeans(X, 3, KMeansOptions{NInit: 5, MaxIter: 100, Seed: 42})
	require.NoError(t, err)
	for g := 0; g < 3; g++ {
		want := m.Labels[g*10]
		for i := g * 10; i < (g+1)*10; i++ {
			assert.Equal(t, want, m.Labels[i], "point %d", i)
		}
	}
	assert.Equal(t, []int{10, 10, 10}, sortedInts(clusterSizes(m.Labels, 3)))
	assert.Less(t, m.Inertia, 5.0)
}

func TestKMeansDeterministic(t *testing.T) {
	X := blobs(8)
	opt := KMeansOptions{NInit: 4, MaxIter: 50, Seed: 7}
	a, err := KMeans(X, 4, opt)
	require.NoError(t, err)
	b, err := KMeans(X, 4, opt)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKMeansTooFewRows(t *testing.T) {
	_, err := KMeans([][]float64{{1}, {2}}, 3, KMeansOptions{})
	assert.ErrorIs(t, err, ErrTooFewRows)
}

func TestKMeansIdenticalPoints(t *testing.T) {
	X := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	m, err := KMeans(X, 2, KMeansOptions{NInit: 2, Seed: 1})
	require.NoError(t, err)
	assert.Len(t, m.Labels, 4)
	assert.Zero(t, m.Inertia)
}

func TestMetricsOnBlobs(t *testing.T) {
	X := blobs(10)
	m, err := KMeans(X, 3, KMeansOptions{NInit: 5, Seed: 42})
	require.NoError(t, err)
	assert.Greater(t, Silhouette(X, m.Labels, 3), 0.9)
	assert.Less(t, DaviesBouldin(X, m.Labels, m.Centroids), 0.1)

	split, err := KMeans(X, 6, KMeansOptions{NInit: 5, Seed: 42})
	require.NoError(t, err)
	assert.Less(t, Silhouette(X, split.Labels, 6), Silhouette(X, m.Labels, 3))
}

func TestSilhouetteSingletonAndDegenerate(t *testing.T) {
	X := [][]float64{{0}, {0.1}, {5}}
	labels := []int{0, 0, 1}
	// Point 2 is alone and scores 0; points 0 and 1 score close to 1.
	s := Silhouette(X, labels, 2)
	assert.InDelta(t, (2*(1-0.1/4.95))/3, s, 0.01)

	assert.Zero(t, Silhouette(X, []int{0, 0, 0}, 2))
	assert.Zero(t, DaviesBouldin(X, []int{0, 0, 0}, [][]float64{{1}, {9}}))
}

func sortedInts(v []int) []int {
	out := append([]int(nil), v...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
