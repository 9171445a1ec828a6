// Package table is the in-memory tabular model shared by every stage:
// ordered columns and rows of typed values, plus readers and a writer for
// delimited and spreadsheet files.
package table

// Record is one row keyed by column name. Missing keys read as null.
type Record map[string]Value

// Get returns the value stored under col, or null.
func (r Record) Get(col string) Value { return r[col] }

// Clone copies the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns and the rows that populate them.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// New creates an empty table with the given header.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether col is part of the header.
func (t *Table) HasColumn(col string) bool {
	return t.columnIndex(col) >= 0
}

func (t *Table) columnIndex(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// AddColumn appends col to the header if it is not already present.
func (t *Table) AddColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

// DropColumn removes col from the header and every row.
func (t *Table) DropColumn(col string) {
	i := t.columnIndex(col)
	if i < 0 {
		return
	}
	t.Columns = append(t.Columns[:i:i], t.Columns[i+1:]...)
	for _, r := range t.Rows {
		delete(r, col)
	}
}

// RenameColumn renames a column in place, keeping its position.
func (t *Table) RenameColumn(from, to string) {
	i := t.columnIndex(from)
	if i < 0 || from == to {
		return
	}
	t.Columns[i] = to
	for _, r := range t.Rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

// Column returns the values of col in row order.
func (t *Table) Column(col string) []Value {
	out := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// Numbers returns the non-null numeric values of col.
func (t *Table) Numbers(col string) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if f, ok := r[col].Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// NonNull counts rows where col holds a value.
func (t *Table) NonNull(col string) int {
	n := 0
	for _, r := range t.Rows {
		if !r[col].IsNull() {
			n++
		}
	}
	return n
}

// Filter keeps rows for which keep returns true and reports how many were removed.
func (t *Table) Filter(keep func(Record) bool) int {
	kept := t.Rows[:0]
	for _, r := range t.Rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	removed := len(t.Rows) - len(kept)
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return removed
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := New(t.Name, t.Columns)
	out.Rows = make([]Record, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// RowKey renders every header column of r into one comparable string.
func (t *Table) RowKey(r Record) string {
	n := 0
	keys := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		keys[i] = r[c].Key()
		n += len(keys[i]) + 1
	}
	buf := make([]byte, 0, n)
	for _, k := range keys {
		buf = append(buf, k...)
		buf = append(buf, 0x1f)
	}
	return string(buf)
}
