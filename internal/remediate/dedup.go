package remediate

import (
	"strings"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// DedupRows collapses rows identical across every column, keeping the first
// occurrence. It returns the number of rows removed.
func DedupRows(t *table.Table) int {
	seen := make(map[string]struct{}, t.Len())
	return t.Filter(func(r table.Record) bool {
		k := t.RowKey(r)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}

// entityKey canonicalizes an identifier for grouping. Blank keys do not group.
func entityKey(v table.Value) (string, bool) {
	s, ok := v.Text()
	if !ok {
		return "", false
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, s != ""
}

// DedupEntities reduces every group of rows sharing keyCol to one row, using
// ResolveConflict per column. Groups keep the position of their first row;
// rows without a key pass through untouched. It returns the number of groups
// collapsed and rows removed.
func DedupEntities(t *table.Table, keyCol string) (groups, removed int) {
	members := make(map[string][]int)
	var order []int // row index, or -1-groupIndex for a group's first row
	var groupKeys []string
	for i, r := range t.Rows {
		k, ok := entityKey(r[keyCol])
		if !ok {
			order = append(order, i)
			continue
		}
		if _, seen := members[k]; !seen {
			order = append(order, -1-len(groupKeys))
			groupKeys = append(groupKeys, k)
		}
		members[k] = append(members[k], i)
	}

	out := make([]table.Record, 0, len(order))
	for _, o := range order {
		if o >= 0 {
			out = append(out, t.Rows[o])
			continue
		}
		idx := members[groupKeys[-1-o]]
		if len(idx) == 1 {
			out = append(out, t.Rows[idx[0]])
			continue
		}
		groups++
		removed += len(idx) - 1
		merged := make(table.Record, len(t.Columns))
		vals := make([]table.Value, len(idx))
		for _, c := range t.Columns {
			for j, ri := range idx {
				vals[j] = t.Rows[ri][c]
			}
			merged[c] = ResolveConflict(vals)
		}
		out = append(out, merged)
	}
	t.Rows = out
	return groups, removed
}
