package remediate

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// cascadeStep is one ordered drop/fill/derive rule. Columns lists every
// column the step reads or writes; each must have exactly one policy entry.
type cascadeStep struct {
	Name    string
	Columns []string
	Run     func(e *env, t *table.Table) (StageDelta, error)
}

func customerCascade() []cascadeStep {
	return []cascadeStep{
		{Name: "drop_missing_customer_id", Columns: []string{ColCustomerID}, Run: dropMissingCustomerID},
		{Name: "impute_age", Columns: []string{ColAge, ColAgeGroup, ColGender}, Run: imputeAge},
		{Name: "impute_gender", Columns: []string{ColGender}, Run: imputeGender},
		{Name: "impute_location", Columns: []string{ColCity, ColState}, Run: imputeLocation},
	}
}

func dropMissingCustomerID(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len()}
	if !t.HasColumn(ColCustomerID) {
		d.warn("column %q not found; rows cannot be attributed to customers", ColCustomerID)
		d.RowsAfter = t.Len()
		return d, nil
	}
	n := dropWhereMissing(t, Policy(Customer).Dropping(ColCustomerID))
	d.remove("rows without a customer id", n)
	if n > 0 {
		d.Message = fmt.Sprintf("%s removed because no customer id was provided.", plural(n, "row was", "rows were"))
	}
	d.RowsAfter = t.Len()
	return d, nil
}

// dropWhereMissing removes rows with a null in any present column of cols.
func dropWhereMissing(t *table.Table, cols []string) int {
	cols = present(t, cols)
	if len(cols) == 0 {
		return 0
	}
	return t.Filter(func(r table.Record) bool {
		for _, c := range cols {
			if r[c].IsNull() {
				return false
			}
		}
		return true
	})
}

// imputeAge fills missing ages with the median of the row's gender group
// when gender separates at least two known values, then with the overall
// median, and re-derives age groups.
func imputeAge(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColAge) {
		return d, nil
	}
	var missing []table.Record
	for _, r := range t.Rows {
		if _, ok := r[ColAge].Float(); !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return d, nil
	}
	known := t.Numbers(ColAge)
	if len(known) == 0 {
		d.warn("age is missing for every row; left empty")
		return d, nil
	}

	byGroup := 0
	if t.HasColumn(ColGender) && knownGenders(t) >= 2 {
		groups := map[string][]float64{}
		for _, r := range t.Rows {
			if a, ok := r[ColAge].Float(); ok {
				g := r[ColGender].Key()
				groups[g] = append(groups[g], a)
			}
		}
		medians := make(map[string]float64, len(groups))
		for g, vals := range groups {
			m, err := stats.Median(vals)
			if err == nil {
				medians[g] = m
			}
		}
		for _, r := range missing {
			if m, ok := medians[r[ColGender].Key()]; ok {
				r[ColAge] = table.Num(m)
				byGroup++
			}
		}
	}

	overall, err := stats.Median(known)
	if err != nil {
		return d, fmt.Errorf("median age: %w", err)
	}
	rest := 0
	for _, r := range missing {
		if r[ColAge].IsNull() {
			r[ColAge] = table.Num(overall)
			rest++
		}
		if t.HasColumn(ColAgeGroup) {
			r[ColAgeGroup] = table.Str(ageGroup(r[ColAge]))
		}
	}
	d.fill("age (median by gender)", byGroup)
	d.fill("age (overall median)", rest)
	d.Message = fmt.Sprintf("Filled %d missing age value(s) with median ages.", byGroup+rest)
	return d, nil
}

func knownGenders(t *table.Table) int {
	seen := map[string]struct{}{}
	for _, r := range t.Rows {
		if s, ok := r[ColGender].Text(); ok && s != Unknown {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

// imputeGender replaces Unknown with the most frequent known gender.
func imputeGender(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColGender) {
		return d, nil
	}
	var known []string
	var unknown []table.Record
	for _, r := range t.Rows {
		s, ok := r[ColGender].Text()
		if !ok || s == Unknown {
			unknown = append(unknown, r)
			continue
		}
		known = append(known, s)
	}
	if len(unknown) == 0 {
		return d, nil
	}
	mode, ok := numeric.Mode(known)
	if !ok {
		d.warn("gender has no known values; %d row(s) left as Unknown", len(unknown))
		return d, nil
	}
	for _, r := range unknown {
		r[ColGender] = table.Str(mode)
	}
	d.fill("gender (most common)", len(unknown))
	d.Message = fmt.Sprintf("Replaced %d unknown gender value(s) with the most common value, %s.", len(unknown), mode)
	return d, nil
}
