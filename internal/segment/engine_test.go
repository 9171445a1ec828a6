package segment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// customerBlobs returns 36 customers in three groups on recency and
// frequency, plus one customer with no orders and one with no recency.
func customerBlobs() *table.Table {
	cols := []string{"customerid", "totalOrders", "recency", "frequency", "city"}
	var rows [][]any
	groups := []struct {
		recency, frequency float64
		city               string
	}{{10, 1, "Ipoh"}, {100, 5, "Klang"}, {200, 10, "Johor Bahru"}}
	id := 0
	for _, g := range groups {
		for i := 0; i < 12; i++ {
			id++
			rows = append(rows, []any{
				fmt.Sprintf("C%03d", id),
				3,
				g.recency + float64(i%4),
				g.frequency + float64(i%3)*0.1,
				g.city,
			})
		}
	}
	rows = append(rows,
		[]any{"ZERO", 0, nil, nil, "Ipoh"},
		[]any{"GAP", 2, nil, 3.0, "Ipoh"},
	)
	return tbl(cols, rows...)
}

func TestEngineFindsThreeSegments(t *testing.T) {
	eng := NewEngine(Options{KMin: 2, KMax: 6, NInit: 5, Seed: 42, Workers: 2}, nil)
	calls, last := 0, 0
	eng.OnProgress(func(done, total int) {
		calls++
		last = done
		assert.Equal(t, 5, total)
	})

	res, err := eng.Run(context.Background(), customerBlobs(), []string{"recency", "frequency", "missing_col"})
	require.NoError(t, err)

	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, last)
	assert.Equal(t, 36, res.Rows)
	assert.Equal(t, 3, res.BestK)
	assert.Equal(t, 3, res.Decision.SelectedK)
	assert.Equal(t, ReasonPlateau, res.Decision.Reason)
	assert.Equal(t, []string{"recency", "frequency"}, res.FeatureInfo.SelectedFeatures)
	assert.Len(t, res.Evaluation, 5)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Assignments, 36)
	for g := 0; g < 3; g++ {
		want := res.Assignments[g*12].Cluster
		for i := g * 12; i < (g+1)*12; i++ {
			assert.Equal(t, want, res.Assignments[i].Cluster, res.Assignments[i].CustomerID)
		}
	}
	require.Len(t, res.Summary, 3)
	for name, s := range res.Summary {
		assert.Equal(t, 12, s.Count, name)
		assert.InDelta(t, 33.33, s.Percentage, 0.01)
		assert.Contains(t, s.Attributes, "recency")
	}
}

func TestEngineDeterministic(t *testing.T) {
	run := func(workers int) *Result {
		eng := NewEngine(Options{KMin: 2, KMax: 5, NInit: 3, Seed: 7, Workers: workers}, nil)
		res, err := eng.Run(context.Background(), customerBlobs(), []string{"recency", "frequency"})
		require.NoError(t, err)
		return res
	}
	a, b := run(1), run(0)
	assert.Equal(t, a.BestK, b.BestK)
	assert.Equal(t, a.Evaluation, b.Evaluation)
	assert.Equal(t, a.Assignments, b.Assignments)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestEngineCategoricalSummary(t *testing.T) {
	eng := NewEngine(Options{KMin: 2, KMax: 4, Seed: 1}, nil)
	res, err := eng.Run(context.Background(), customerBlobs(), []string{"city", "recency"})
	require.NoError(t, err)
	cities := map[any]bool{}
	for _, s := range res.Summary {
		cities[s.Attributes["city"]] = true
	}
	assert.NotEmpty(t, cities)
	assert.Equal(t, []string{"city"}, res.FeatureInfo.Frequency)
}

func TestEngineErrors(t *testing.T) {
	eng := NewEngine(DefaultOptions(), nil)
	ctx := context.Background()

	_, err := eng.Run(ctx, tbl([]string{"recency"}, []any{1}), []string{"recency"})
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = eng.Run(ctx, customerBlobs(), []string{"height"})
	assert.ErrorIs(t, err, ErrNoFeatures)

	few := tbl([]string{"customerid", "recency"}, []any{"a", 1}, []any{"b", 2})
	_, err = eng.Run(ctx, few, []string{"recency"})
	assert.ErrorIs(t, err, ErrTooFewRows)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = eng.Run(cancelled, customerBlobs(), []string{"recency", "frequency"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineDefaults(t *testing.T) {
	eng := NewEngine(Options{}, nil)
	assert.Equal(t, 2, eng.opt.KMin)
	assert.Equal(t, 10, eng.opt.KMax)
	assert.Equal(t, DefaultCriteria(), eng.opt.Criteria)
}
