package remediate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tidyseg-cli/internal/geocode"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

func TestCascadeColumnsHaveOnePolicyEntry(t *testing.T) {
	for dt, steps := range map[DatasetType][]cascadeStep{Customer: customerCascade(), Order: orderCascade()} {
		pol := Policy(dt)
		for _, s := range steps {
			for _, c := range s.Columns {
				assert.Len(t, pol.Lookup(c), 1, "%s step %s column %q", dt, s.Name, c)
			}
		}
	}
}

func TestImputeAgeByGender(t *testing.T) {
	tb := build([]string{ColAge, ColAgeGroup, ColGender},
		[]any{20, "18-24", "Male"},
		[]any{30, "25-34", "Male"},
		[]any{50, "45-54", "Female"},
		[]any{nil, Unknown, "Male"},
		[]any{nil, Unknown, "Female"},
	)
	d, err := imputeAge(testEnv(Customer, nil), tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"20", "30", "50", "25", "50"}, texts(tb, ColAge))
	assert.Equal(t, "25-34", tb.Rows[3][ColAgeGroup].S)
	assert.Equal(t, "45-54", tb.Rows[4][ColAgeGroup].S)
	assert.Equal(t, 2, d.Filled["age (median by gender)"])
}

func TestImputeAgeOverallMedianWithOneGender(t *testing.T) {
	tb := build([]string{ColAge, ColGender},
		[]any{20, "Male"}, []any{40, "Male"}, []any{nil, "Male"})
	d, err := imputeAge(testEnv(Customer, nil), tb)
	require.NoError(t, err)
	assert.Equal(t, "30", tb.Rows[2][ColAge].String())
	assert.Equal(t, 1, d.Filled["age (overall median)"])
}

func TestImputeGender(t *testing.T) {
	tb := build([]string{ColGender}, []any{"Female"}, []any{Unknown}, []any{"Male"}, []any{"Female"})
	_, err := imputeGender(testEnv(Customer, nil), tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"Female", "Female", "Male", "Female"}, texts(tb, ColGender))

	none := build([]string{ColGender}, []any{Unknown})
	d, err := imputeGender(testEnv(Customer, nil), none)
	require.NoError(t, err)
	assert.Equal(t, Unknown, none.Rows[0][ColGender].S)
	assert.NotEmpty(t, d.Warnings)
}

func klRows() *table.Table {
	rows := [][]any{{"Kuala Lumpur", Unknown}}
	for i := 0; i < 9; i++ {
		rows = append(rows, []any{"Kuala Lumpur", "Selangor"})
	}
	return build([]string{ColCity, ColState}, rows...)
}

func TestLocationFallbackWhenResolverUnavailable(t *testing.T) {
	tb := klRows()
	before := tb.Clone()
	d, err := imputeLocation(testEnv(Customer, geocode.Unavailable), tb)
	require.NoError(t, err)

	assert.Equal(t, "Selangor", tb.Rows[0][ColState].S)
	assert.Equal(t, "Kuala Lumpur", tb.Rows[0][ColCity].S)
	for i := 1; i < tb.Len(); i++ {
		assert.Equal(t, before.Rows[i], tb.Rows[i])
	}
	assert.Equal(t, 1, d.Filled["city+state (most common fallback)"])
}

func TestLocationLookupResolvesOncePerCity(t *testing.T) {
	var calls atomic.Int32
	res := geocode.ResolverFunc(func(_ context.Context, name string) (string, error) {
		calls.Add(1)
		if name == "Ipoh" {
			return "perak", nil
		}
		return "", geocode.ErrNotFound
	})
	tb := build([]string{ColCity, ColState},
		[]any{"Ipoh", Unknown},
		[]any{"Ipoh", Unknown},
		[]any{"Shah Alam", "Selangor"},
	)
	d, err := imputeLocation(testEnv(Customer, res), tb)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, []string{"Perak", "Perak", "Selangor"}, texts(tb, ColState))
	assert.Equal(t, []string{"Ipoh", "Ipoh", "Shah Alam"}, texts(tb, ColCity))
	assert.Equal(t, 2, d.Filled["state (location lookup)"])
}

func TestLocationLookupRejectsRegionsOutsideSet(t *testing.T) {
	res := geocode.ResolverFunc(func(context.Context, string) (string, error) { return "California", nil })
	tb := build([]string{ColCity, ColState},
		[]any{"Springfield", Unknown},
		[]any{"Ipoh", "Perak"},
	)
	_, err := imputeLocation(testEnv(Customer, res), tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ipoh", "Ipoh"}, texts(tb, ColCity))
	assert.Equal(t, []string{"Perak", "Perak"}, texts(tb, ColState))
}

func TestLocationTransportErrorDegrades(t *testing.T) {
	res := geocode.ResolverFunc(func(context.Context, string) (string, error) {
		return "", &geocode.UnreachableError{Host: "geo.test", Err: errors.New("dial tcp: refused")}
	})
	tb := build([]string{ColCity, ColState}, []any{"Ipoh", Unknown}, []any{"Klang", "Selangor"})
	_, err := imputeLocation(testEnv(Customer, res), tb)
	require.NoError(t, err)
	assert.Equal(t, "Selangor", tb.Rows[0][ColState].S)
}

func TestLocationCityFromStateAndPair(t *testing.T) {
	tb := build([]string{ColCity, ColState},
		[]any{Unknown, "Selangor"},
		[]any{Unknown, Unknown},
		[]any{"Klang", "Selangor"},
		[]any{"Shah Alam", "Selangor"},
		[]any{"Shah Alam", "Selangor"},
		[]any{Unknown, "Sabah"},
	)
	d, err := imputeLocation(testEnv(Customer, nil), tb)
	require.NoError(t, err)
	assert.Equal(t, "Shah Alam", tb.Rows[0][ColCity].S)
	assert.Equal(t, place{"Shah Alam", "Selangor"}, placeOf(tb.Rows[1]))
	// No known city in Sabah.
	assert.Equal(t, place{Unknown, "Sabah"}, placeOf(tb.Rows[5]))
	assert.Equal(t, 1, d.Filled["city (most common in state)"])
	assert.Equal(t, 1, d.Filled["city+state (most common pair)"])
}

func TestLocationNoRowUnknownInBoth(t *testing.T) {
	tb := build([]string{ColCity, ColState},
		[]any{Unknown, Unknown},
		[]any{"Ipoh", Unknown},
		[]any{Unknown, "Perak"},
		[]any{"Ipoh", "Perak"},
		[]any{Unknown, Unknown},
	)
	_, err := imputeLocation(testEnv(Customer, nil), tb)
	require.NoError(t, err)
	for _, r := range tb.Rows {
		p := placeOf(r)
		assert.False(t, p.city == Unknown && p.state == Unknown)
	}
}

func TestOrderCascadeScenario(t *testing.T) {
	tb := build([]string{ColOrderID, ColCustomerID, ColItem, ColPrice, ColQuantity, ColTotal},
		[]any{"1", "A", "X", 10, nil, 20},
		[]any{"2", "B", "Y", nil, nil, nil},
	)
	e := testEnv(Order, nil)
	for _, s := range orderCascade() {
		_, err := s.Run(e, tb)
		require.NoError(t, err, s.Name)
	}
	require.Equal(t, 1, tb.Len())
	assert.Equal(t, "1", tb.Rows[0][ColOrderID].S)
	assert.Equal(t, 2.0, tb.Rows[0][ColQuantity].N)
}

func TestInvalidateAndDeriveTotals(t *testing.T) {
	tb := build([]string{ColOrderID, ColPrice, ColQuantity, ColTotal, ColPayment},
		[]any{"1", 5, 3, nil, nil},
		[]any{"2", -4, 1, 8, "Card"},
		[]any{"3", 4, nil, 0, "Cash"},
	)
	e := testEnv(Order, nil)
	d, err := invalidateAmounts(e, tb)
	require.NoError(t, err)
	assert.Len(t, d.Warnings, 2)
	assert.True(t, tb.Rows[1][ColPrice].IsNull())
	assert.True(t, tb.Rows[2][ColTotal].IsNull())

	_, err = deriveQuantity(e, tb)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tb.Rows[2][ColQuantity].N)

	n, err := dropMissingPrice(e, tb)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Removed["orders without item price"])

	d, err = deriveTotal(e, tb)
	require.NoError(t, err)
	assert.Equal(t, []string{"15", "4"}, texts(tb, ColTotal))
	assert.Equal(t, 2, d.Filled["total spend (price x quantity)"])

	_, err = fillPaymentMethod(e, tb)
	require.NoError(t, err)
	assert.Equal(t, []string{Unknown, "Cash"}, texts(tb, ColPayment))
}
