package segment

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// wholeNumberCols are averaged then rounded to whole numbers.
var wholeNumberCols = map[string]bool{
	"totalOrders":            true,
	"frequency":              true,
	"favoritePurchaseHour":   true,
	"customerLifetimeMonths": true,
	"recency":                true,
	"age":                    true,
}

// ClusterSummary describes one cluster: its size and a representative value
// per feature (mode for categoricals, mean for numerics).
type ClusterSummary struct {
	Count      int            `json:"count"`
	Percentage float64        `json:"percentage"`
	Attributes map[string]any `json:"attributes"`
}

// Summarize builds one ClusterSummary per cluster label, keyed cluster_<n>.
func Summarize(t *table.Table, labels []int, k int, features []string) (map[string]ClusterSummary, error) {
	members := make([][]table.Record, k)
	for i, l := range labels {
		members[l] = append(members[l], t.Rows[i])
	}
	numericCol := map[string]bool{}
	for _, f := range features {
		numericCol[f] = t.IsNumericColumn(f)
	}

	out := make(map[string]ClusterSummary, k)
	for c, rows := range members {
		if len(rows) == 0 {
			continue
		}
		s := ClusterSummary{
			Count:      len(rows),
			Percentage: numeric.Round(float64(len(rows))/float64(len(labels))*100, 2),
			Attributes: map[string]any{},
		}
		for _, f := range features {
			if !numericCol[f] {
				vals := make([]string, 0, len(rows))
				for _, r := range rows {
					if v, ok := r[f].Text(); ok {
						vals = append(vals, v)
					}
				}
				if m, ok := numeric.Mode(vals); ok {
					s.Attributes[f] = m
				}
				continue
			}
			vals := make([]float64, 0, len(rows))
			for _, r := range rows {
				if v, ok := r[f].Float(); ok {
					vals = append(vals, v)
				}
			}
			mean, err := stats.Mean(vals)
			if err != nil {
				return nil, fmt.Errorf("cluster %d %s: %w", c, f, err)
			}
			dp := 2
			if wholeNumberCols[f] {
				dp = 0
			}
			s.Attributes[f] = numeric.Round(mean, dp)
		}
		out[fmt.Sprintf("cluster_%d", c)] = s
	}
	return out, nil
}
