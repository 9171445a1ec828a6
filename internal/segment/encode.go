package segment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// AgeGroupOrder is the ordinal scale for age_group; other values encode as -1.
var AgeGroupOrder = []string{"Below 18", "18-24", "25-34", "35-44", "45-54", "55-64", "Above 65"}

// Fixed encoding rules. Any other categorical (favoritePaymentMethod,
// favoriteDayPart, gender, state) is one-hot encoded and any other numeric
// (spend, orders, recency, frequency) is robust-scaled.
var (
	frequencyCols = []string{"favoriteItem", "city"}
	ordinalCols   = []string{"age_group"}
	standardCols  = []string{"customerLifetimeMonths", "age"}
	minMaxCols    = []string{"favoritePurchaseHour"}
)

// FeatureInfo records how each selected feature was encoded.
type FeatureInfo struct {
	SelectedFeatures []string `json:"selected_features"`
	OneHot           []string `json:"ohe_cols"`
	Ordinal          []string `json:"ordinal_cols"`
	Frequency        []string `json:"frequency_cols"`
	Robust           []string `json:"robust_scaled"`
	Standard         []string `json:"standard_scaled"`
	MinMax           []string `json:"minmax_scaled"`
	TransformedShape [2]int   `json:"transformed_shape"`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Encode turns the selected feature columns of t into a numeric matrix, one
// row per table row. Every row must hold a value for every feature.
func Encode(t *table.Table, features []string) ([][]float64, FeatureInfo, error) {
	info := FeatureInfo{SelectedFeatures: append([]string(nil), features...)}
	if len(features) == 0 {
		return nil, info, ErrNoFeatures
	}
	n := t.Len()
	if n == 0 {
		return nil, info, ErrTooFewRows
	}
	var blocks [][][]float64 // each block is n rows of some width

	var numericCols, catCols []string
	for _, f := range features {
		if !t.HasColumn(f) {
			return nil, info, fmt.Errorf("%w: %q", ErrNoFeatures, f)
		}
		if t.IsNumericColumn(f) {
			numericCols = append(numericCols, f)
		} else {
			catCols = append(catCols, f)
		}
	}

	for _, c := range catCols {
		c := c
		if contains(ordinalCols, c) {
			info.Ordinal = append(info.Ordinal, c)
			blocks = append(blocks, column(n, func(i int) float64 { return ordinal(t.Rows[i][c]) }))
		}
	}
	for _, c := range catCols {
		if contains(ordinalCols, c) || contains(frequencyCols, c) {
			continue
		}
		info.OneHot = append(info.OneHot, c)
		blocks = append(blocks, oneHot(t, c))
	}
	for _, c := range catCols {
		if contains(frequencyCols, c) {
			info.Frequency = append(info.Frequency, c)
			blocks = append(blocks, frequency(t, c))
		}
	}

	for _, c := range numericCols {
		vals := t.Numbers(c)
		if len(vals) != n {
			return nil, info, fmt.Errorf("feature %q has missing values", c)
		}
		var scaled []float64
		switch {
		case contains(standardCols, c):
			info.Standard = append(info.Standard, c)
			scaled = standardScale(vals)
		case contains(minMaxCols, c):
			info.MinMax = append(info.MinMax, c)
			scaled = minMaxScale(vals)
		default:
			info.Robust = append(info.Robust, c)
			scaled = robustScale(vals)
		}
		blocks = append(blocks, column(n, func(i int) float64 { return scaled[i] }))
	}

	width := 0
	for _, b := range blocks {
		width += len(b[0])
	}
	if width == 0 {
		return nil, info, ErrNoFeatures
	}
	X := make([][]float64, n)
	for i := range X {
		row := make([]float64, 0, width)
		for _, b := range blocks {
			row = append(row, b[i]...)
		}
		X[i] = row
	}
	info.TransformedShape = [2]int{n, width}
	return X, info, nil
}

func column(n int, f func(i int) float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{f(i)}
	}
	return out
}

func ordinal(v table.Value) float64 {
	s, _ := v.Text()
	for i, g := range AgeGroupOrder {
		if g == s {
			return float64(i)
		}
	}
	return -1
}

// oneHot expands c into one indicator column per distinct value, sorted.
func oneHot(t *table.Table, c string) [][]float64 {
	idx := map[string]int{}
	var cats []string
	for _, r := range t.Rows {
		s, _ := r[c].Text()
		if _, ok := idx[s]; !ok {
			idx[s] = 0
			cats = append(cats, s)
		}
	}
	sort.Strings(cats)
	for i, s := range cats {
		idx[s] = i
	}
	out := make([][]float64, t.Len())
	for i, r := range t.Rows {
		s, _ := r[c].Text()
		row := make([]float64, len(cats))
		row[idx[s]] = 1
		out[i] = row
	}
	return out
}

// frequency replaces each value with its share of rows.
func frequency(t *table.Table, c string) [][]float64 {
	counts := map[string]int{}
	for _, r := range t.Rows {
		s, _ := r[c].Text()
		counts[s]++
	}
	n := float64(t.Len())
	return column(t.Len(), func(i int) float64 {
		s, _ := t.Rows[i][c].Text()
		return float64(counts[s]) / n
	})
}

// robustScale centres on the median and divides by the interquartile range.
func robustScale(x []float64) []float64 {
	med := numeric.Quantile(x, 0.5)
	q1, q3 := numeric.Quartiles(x)
	scale := q3 - q1
	if scale == 0 {
		scale = 1
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - med) / scale
	}
	return out
}

func standardScale(x []float64) []float64 {
	mean, std := stat.PopMeanStdDev(x, nil)
	if std == 0 {
		std = 1
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

func minMaxScale(x []float64) []float64 {
	lo, hi := floats.Min(x), floats.Max(x)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - lo) / span
	}
	return out
}
