package remediate

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// OutlierMethod names how bounds were chosen.
type OutlierMethod string

const (
	MethodIQR        OutlierMethod = "iqr"
	MethodPercentile OutlierMethod = "percentile"
)

// OutlierResult describes one flagged column.
type OutlierResult struct {
	Column  string
	FlagCol string
	Method  OutlierMethod
	Lower   float64
	Upper   float64
	Flagged int
	Checked int
}

// outlierTargets maps each checked column to its flag column.
var outlierTargets = map[DatasetType][][2]string{
	Customer: {{ColAge, "is_age_outlier"}},
	Order:    {{ColQuantity, "is_quantity_outlier"}, {ColTotal, "is_spend_outlier"}},
}

// FlagOutliers marks values of col outside the expected range in flagCol.
// With n rows below cutoff the bounds are Q1-1.5*IQR and Q3+1.5*IQR,
// otherwise the 1st and 99th percentiles. Source values are never changed;
// rows with a null value get a null flag. ok is false when col holds no
// numbers.
func FlagOutliers(t *table.Table, col, flagCol string, cutoff int) (res OutlierResult, ok bool) {
	vals := t.Numbers(col)
	if len(vals) == 0 {
		return OutlierResult{}, false
	}
	res = OutlierResult{Column: col, FlagCol: flagCol, Checked: len(vals)}
	if t.Len() < cutoff {
		q1, q3 := numeric.Quartiles(vals)
		iqr := q3 - q1
		res.Method, res.Lower, res.Upper = MethodIQR, q1-1.5*iqr, q3+1.5*iqr
	} else {
		res.Method = MethodPercentile
		res.Lower = numeric.Quantile(vals, 0.01)
		res.Upper = numeric.Quantile(vals, 0.99)
	}
	t.AddColumn(flagCol)
	for _, r := range t.Rows {
		f, ok := r[col].Float()
		if !ok {
			r[flagCol] = table.Null()
			continue
		}
		out := f < res.Lower || f > res.Upper
		r[flagCol] = table.Bool(out)
		if out {
			res.Flagged++
		}
	}
	return res, true
}

func flagOutliers(e *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{Stage: stageOutliers, RowsBefore: t.Len(), RowsAfter: t.Len()}
	var lines []string
	for _, target := range outlierTargets[e.dataset] {
		if !t.HasColumn(target[0]) {
			continue
		}
		res, ok := FlagOutliers(t, target[0], target[1], e.opt.OutlierSizeCutoff)
		if !ok {
			d.warn("%q has no numeric values; outlier check skipped", target[0])
			continue
		}
		d.flag(res.FlagCol, res.Flagged)
		if res.Flagged > 0 {
			lines = append(lines, fmt.Sprintf("  - %s: %d unusual value(s) outside [%.2f, %.2f] (%s)",
				titleCase(res.Column), res.Flagged, res.Lower, res.Upper, res.Method))
		}
	}
	if len(lines) == 0 {
		d.Message = "All values look consistent. No unusual values detected."
		return d, nil
	}
	d.Message = "Unusual values were flagged for your attention; original values are preserved.\n" +
		strings.Join(lines, "\n")
	return d, nil
}
