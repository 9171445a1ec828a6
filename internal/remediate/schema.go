package remediate

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

func fillRatio(t *table.Table, col string) float64 {
	if t.Len() == 0 {
		return 0
	}
	return float64(t.NonNull(col)) / float64(t.Len())
}

// validateSchema reports completeness of the expected columns. Sparse
// optional columns are dropped; sparse or absent mandatory columns only
// produce warnings.
func validateSchema(e *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{Stage: stageSchema, RowsBefore: t.Len(), RowsAfter: t.Len(), Completeness: map[string]float64{}}
	threshold := e.opt.CompletenessThreshold
	pol := Policy(e.dataset)
	var msg []string

	if opt := pol.Columns(Optional); len(opt) > 0 {
		var dropped, lines []string
		for _, col := range opt {
			if !t.HasColumn(col) {
				d.Completeness[col] = 0
				lines = append(lines, fmt.Sprintf("%s: column not found (100%% missing)", col))
				dropped = append(dropped, col)
				continue
			}
			ratio := fillRatio(t, col)
			d.Completeness[col] = ratio
			lines = append(lines, fmt.Sprintf("%s: %.1f%% missing", col, (1-ratio)*100))
			if ratio < threshold {
				t.DropColumn(col)
				dropped = append(dropped, col)
			}
		}
		if len(dropped) > 0 {
			d.warn("optional column(s) removed or absent: %s", strings.Join(dropped, ", "))
			msg = append(msg, fmt.Sprintf("Very few entries were provided for %s, so these columns are not used. "+
				"Segmentation still uses location and purchase behaviour.\n\nMissing data summary:\n%s",
				strings.Join(dropped, ", "), strings.Join(lines, "\n")))
		} else {
			msg = append(msg, "All optional columns have enough data and are kept.\n\nMissing data summary:\n"+strings.Join(lines, "\n"))
		}
	}

	var sparse, lines []string
	for _, col := range pol.Columns(Mandatory) {
		if !t.HasColumn(col) {
			d.Completeness[col] = 0
			lines = append(lines, fmt.Sprintf("%s: column not found (100%% missing)", col))
			sparse = append(sparse, col)
			continue
		}
		ratio := fillRatio(t, col)
		d.Completeness[col] = ratio
		lines = append(lines, fmt.Sprintf("%s: %.1f%% missing", col, (1-ratio)*100))
		if ratio < threshold {
			sparse = append(sparse, col)
		}
	}
	if len(sparse) > 0 {
		d.warn("key field(s) with many missing values: %s", strings.Join(sparse, ", "))
		msg = append(msg, fmt.Sprintf("Some key fields in the %s dataset have many missing values: %s. "+
			"Cleaning continues and handles missing values automatically, but re-uploading more complete "+
			"source data is strongly recommended for accurate segmentation.\n\nMissing data summary:\n%s",
			e.dataset, strings.Join(sparse, ", "), strings.Join(lines, "\n")))
	} else {
		msg = append(msg, fmt.Sprintf("All mandatory columns in the %s dataset have sufficient data.\n\nMissing data summary:\n%s",
			e.dataset, strings.Join(lines, "\n")))
	}
	d.Message = strings.Join(msg, "\n\n")
	return d, nil
}
