package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadDelimitedSniffsAndMapsNA(t *testing.T) {
	src := "CustomerID;City;State\nC1;KL;NA\nC2;;Selangor\n\n"
	tb, err := ReadDelimited(strings.NewReader(src), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"CustomerID", "City", "State"}, tb.Columns)
	require.Len(t, tb.Rows, 2)
	assert.True(t, tb.Rows[0]["State"].IsNull())
	assert.True(t, tb.Rows[1]["City"].IsNull())
	assert.Equal(t, "Selangor", tb.Rows[1]["State"].S)
}

func TestReadDelimitedShortRowsAndDuplicateHeaders(t *testing.T) {
	tb, err := ReadDelimited(strings.NewReader("a,a,b\n1\n"), ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b"}, tb.Columns)
	assert.Equal(t, "1", tb.Rows[0]["a"].S)
	assert.True(t, tb.Rows[0]["b"].IsNull())
}

func TestReadDelimitedEmpty(t *testing.T) {
	_, err := ReadDelimited(strings.NewReader(""), ',')
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadFileUnsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.parquet")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	_, err := ReadFile(p, ReadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadFileTSVAndName(t *testing.T) {
	p := filepath.Join(t.TempDir(), "orders.tsv")
	require.NoError(t, os.WriteFile(p, []byte("x\ty\n1\t2\n"), 0o644))
	tb, err := ReadFile(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "orders", tb.Name)
	assert.Equal(t, []string{"x", "y"}, tb.Columns)
}

func TestReadXLSX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "customers.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"CustomerID", "Age"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"c1", 30}))
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	tb, err := ReadFile(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CustomerID", "Age"}, tb.Columns)
	n, ok := tb.Rows[0]["Age"].Float()
	require.True(t, ok)
	assert.Equal(t, 30.0, n)

	_, err = ReadFile(p, ReadOptions{SheetName: "Missing"})
	assert.ErrorContains(t, err, "Available sheets: Sheet1")
}

func TestWriteDelimitedRendersKinds(t *testing.T) {
	tb := New("t", []string{"id", "n", "flag", "empty"})
	tb.Rows = []Record{{"id": Str("A"), "n": Num(2.5), "flag": Bool(true)}}
	var buf bytes.Buffer
	require.NoError(t, WriteDelimited(&buf, tb, ','))
	assert.Equal(t, "id,n,flag,empty\nA,2.5,True,\n", buf.String())
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"12":       12,
		" 1,234 ":  1234,
		"1.234,5":  1234.5,
		"1,5":      1.5,
		"-3.25":    -3.25,
		"1 000.75": 1000.75,
	}
	for in, want := range cases {
		got, ok := ParseNumber(in)
		require.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	_, ok := ParseNumber("abc")
	assert.False(t, ok)
}

func TestParseDateDayFirst(t *testing.T) {
	d, hasTime, ok := ParseDate("03/04/2024 14:05")
	require.True(t, ok)
	assert.True(t, hasTime)
	assert.Equal(t, 4, int(d.Month()))
	assert.Equal(t, 3, d.Day())
	assert.Equal(t, 14, d.Hour())

	_, hasTime, ok = ParseDate("2024-01-31")
	require.True(t, ok)
	assert.False(t, hasTime)
}

func TestNormalizeColumns(t *testing.T) {
	tb := New("t", []string{" Customer ID ", "STATE", "state"})
	tb.Rows = []Record{{" Customer ID ": Str("a"), "STATE": Str("x"), "state": Str("y")}}
	tb.NormalizeColumns()
	assert.Equal(t, []string{"customer id", "STATE", "state"}, tb.Columns)
	assert.Equal(t, "a", tb.Rows[0]["customer id"].S)
}

func TestTableColumnOps(t *testing.T) {
	tb := New("t", []string{"a", "b", "c"})
	tb.Rows = []Record{{"a": Num(1), "b": Str("x")}, {"a": Num(2)}}
	tb.DropColumn("b")
	assert.Equal(t, []string{"a", "c"}, tb.Columns)
	_, has := tb.Rows[0]["b"]
	assert.False(t, has)

	tb.RenameColumn("a", "z")
	assert.Equal(t, []string{"z", "c"}, tb.Columns)
	assert.Equal(t, []float64{1, 2}, tb.Numbers("z"))

	removed := tb.Filter(func(r Record) bool { return r["z"].N > 1 })
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tb.Len())

	cp := tb.Clone()
	cp.Rows[0]["z"] = Num(9)
	assert.Equal(t, 2.0, tb.Rows[0]["z"].N)
}

func TestValueKeyDistinguishesKinds(t *testing.T) {
	assert.NotEqual(t, Str("1").Key(), Num(1).Key())
	assert.True(t, Num(1).Equal(Num(1.0)))
	assert.True(t, Null().Equal(Value{}))
	assert.False(t, New("t", []string{"n"}).IsNumericColumn("n"))
}
