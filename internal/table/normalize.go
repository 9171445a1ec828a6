package table

import "strings"

// NormalizeName lower-cases and trims a header and collapses inner runs of
// whitespace to one space.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// NormalizeColumns rewrites every header with NormalizeName. When two raw
// headers normalize to the same name the later one keeps its raw spelling.
// It returns the number of headers that changed.
func (t *Table) NormalizeColumns() int {
	changed := 0
	taken := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		taken[c] = true
	}
	for _, c := range append([]string(nil), t.Columns...) {
		n := NormalizeName(c)
		if n == c {
			continue
		}
		if taken[n] {
			continue
		}
		t.RenameColumn(c, n)
		delete(taken, c)
		taken[n] = true
		changed++
	}
	return changed
}
