package remediate

import (
	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// ResolveConflict reduces the values one entity holds for one column to a
// single representative: null when no value is known, the value itself when
// only one distinct value exists, otherwise the most frequent value with
// ties going to the value seen first.
//
// Columns are resolved independently, so a collapsed entity may combine
// values that never appeared together in one source row.
func ResolveConflict(values []table.Value) table.Value {
	byKey := make(map[string]table.Value, len(values))
	keys := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, seen := byKey[k]; !seen {
			byKey[k] = v
		}
		keys = append(keys, k)
	}
	switch len(byKey) {
	case 0:
		return table.Null()
	case 1:
		return byKey[keys[0]]
	}
	k, _ := numeric.Mode(keys)
	return byKey[k]
}
