package remediate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

func TestResolveConflict(t *testing.T) {
	cases := []struct {
		name string
		in   []table.Value
		want table.Value
	}{
		{"all null", []table.Value{table.Null(), table.Null()}, table.Null()},
		{"single distinct", []table.Value{table.Null(), table.Str("KL"), table.Str("KL")}, table.Str("KL")},
		{"majority", []table.Value{table.Str("a"), table.Str("b"), table.Str("b")}, table.Str("b")},
		{"tie goes to first seen", []table.Value{table.Str("b"), table.Str("a"), table.Str("a"), table.Str("b")}, table.Str("b")},
		{"kinds are distinct", []table.Value{table.Num(1), table.Str("1"), table.Num(1)}, table.Num(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(ResolveConflict(tc.in)), "got %v", ResolveConflict(tc.in))
		})
	}
}

func TestResolveConflictIsMember(t *testing.T) {
	in := []table.Value{table.Str("x"), table.Null(), table.Str("y"), table.Str("z")}
	got := ResolveConflict(in)
	found := false
	for _, v := range in {
		if !v.IsNull() && v.Equal(got) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDedupRows(t *testing.T) {
	tb := build([]string{"a", "b"},
		[]any{"1", "x"},
		[]any{"1", "x"},
		[]any{"1", nil},
		[]any{"1", nil},
		[]any{"2", "x"},
	)
	assert.Equal(t, 2, DedupRows(tb))
	assert.Equal(t, []string{"1", "1", "2"}, texts(tb, "a"))
	assert.Equal(t, 0, DedupRows(tb))
}

func TestDedupEntities(t *testing.T) {
	tb := build([]string{ColCustomerID, ColCity, ColGender},
		[]any{"c1", "Kuala Lumpur", nil},
		[]any{"c2", "Ipoh", "M"},
		[]any{" C1", "Penang", "F"},
		[]any{nil, "Johor Bahru", "M"},
		[]any{"C1", "Penang", nil},
		[]any{"", "Kuching", nil},
	)
	groups, removed := DedupEntities(tb, ColCustomerID)
	assert.Equal(t, 1, groups)
	assert.Equal(t, 2, removed)
	require.Equal(t, 4, tb.Len())

	// c1 keeps the position of its first row; keyless rows pass through.
	assert.Equal(t, []string{"Penang", "Ipoh", "Johor Bahru", "Kuching"}, texts(tb, ColCity))
	assert.Equal(t, "F", tb.Rows[0][ColGender].S)
}

func TestDedupEntitiesUniqueKeys(t *testing.T) {
	tb := build([]string{ColCustomerID, ColCity},
		[]any{"C1", "A"}, []any{"C2", "B"}, []any{"C3", "C"})
	groups, removed := DedupEntities(tb, ColCustomerID)
	assert.Zero(t, groups)
	assert.Zero(t, removed)

	seen := map[string]bool{}
	for _, r := range tb.Rows {
		k, _ := entityKey(r[ColCustomerID])
		assert.False(t, seen[k])
		seen[k] = true
	}
}
