package profile

import (
	"time"

	"github.com/KaramelBytes/tidyseg-cli/internal/remediate"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// Summary describes a merge.
type Summary struct {
	TotalCustomers         int  `json:"totalCustomers"`
	TotalOrders            int  `json:"totalOrders"`
	CustomersWithOrders    int  `json:"customersWithOrders"`
	CustomersWithoutOrders int  `json:"customersWithoutOrders"`
	HasAgeData             bool `json:"hasAgeData"`
	HasGenderData          bool `json:"hasGenderData"`
}

var behaviourColumns = []string{
	ColTotalOrders, ColTotalSpend, ColAvgOrderValue, ColLastPurchase, ColFirstPurchase,
	ColDaysSinceLast, ColLifetimeMonths, ColPurchaseFreq, ColFavPayment, ColFavItem,
	ColFavPurchaseHour, ColFavDayPart, ColRecency, ColFrequency, ColMonetary,
}

// Merge joins order behaviour onto every customer row. Customers without
// orders get zero counts and null dates and favourites. Demographic columns
// are carried over when the customer table has them, with Unknown read as
// null.
func Merge(customers, orders *table.Table, now time.Time) (*table.Table, Summary, error) {
	if !customers.HasColumn(remediate.ColCustomerID) {
		return nil, Summary{}, ErrMissingCustomerID
	}
	agg, err := Aggregate(orders, now)
	if err != nil {
		return nil, Summary{}, err
	}
	byID := make(map[string]Behaviour, len(agg))
	for _, b := range agg {
		byID[b.CustomerID] = b
	}

	cols := []string{remediate.ColCustomerID, remediate.ColCity, remediate.ColState}
	cols = append(cols, behaviourColumns...)
	var demo []string
	for _, c := range []string{remediate.ColAge, remediate.ColAgeGroup, remediate.ColGender} {
		if customers.HasColumn(c) {
			demo = append(demo, c)
		}
	}
	cols = append(cols, demo...)

	out := table.New("merged", cols)
	sum := Summary{TotalCustomers: customers.Len(), TotalOrders: orders.Len(), CustomersWithOrders: len(agg)}
	for _, c := range customers.Rows {
		r := table.Record{
			remediate.ColCustomerID: c[remediate.ColCustomerID],
			remediate.ColCity:       c[remediate.ColCity],
			remediate.ColState:      c[remediate.ColState],
		}
		id, _ := customerKey(c[remediate.ColCustomerID])
		if b, ok := byID[id]; ok {
			b.fill(r)
		} else {
			emptyBehaviour(r)
		}
		for _, col := range demo {
			v := knownOrNull(c[col])
			if col == remediate.ColAge {
				if f, ok := v.Float(); ok {
					v = table.Num(float64(int(f)))
				} else {
					v = table.Null()
				}
				sum.HasAgeData = sum.HasAgeData || !v.IsNull()
			}
			if col == remediate.ColGender {
				sum.HasGenderData = sum.HasGenderData || !v.IsNull()
			}
			r[col] = v
		}
		out.Rows = append(out.Rows, r)
	}
	sum.CustomersWithoutOrders = sum.TotalCustomers - sum.CustomersWithOrders
	return out, sum, nil
}

func (b Behaviour) fill(r table.Record) {
	r[ColTotalOrders] = table.Num(float64(b.TotalOrders))
	r[ColTotalSpend] = table.Num(b.TotalSpend)
	r[ColAvgOrderValue] = table.Num(b.AvgOrderValue)
	if b.HasDates {
		r[ColLastPurchase] = table.Date(b.LastPurchase)
		r[ColFirstPurchase] = table.Date(b.FirstPurchase)
		r[ColDaysSinceLast] = table.Num(float64(b.DaysSinceLast))
		r[ColRecency] = table.Num(float64(b.DaysSinceLast))
	}
	r[ColLifetimeMonths] = table.Num(float64(b.LifetimeMonths))
	r[ColPurchaseFreq] = table.Num(b.Frequency)
	r[ColFavPayment] = textOrNull(b.FavPayment)
	r[ColFavItem] = textOrNull(b.FavItem)
	if b.FavHour >= 0 {
		r[ColFavPurchaseHour] = table.Num(float64(b.FavHour))
	}
	r[ColFavDayPart] = textOrNull(b.FavDayPart)
	r[ColFrequency] = table.Num(float64(b.TotalOrders))
	r[ColMonetary] = table.Num(b.TotalSpend)
}

func emptyBehaviour(r table.Record) {
	for _, c := range []string{ColTotalOrders, ColTotalSpend, ColAvgOrderValue, ColLifetimeMonths, ColPurchaseFreq, ColFrequency, ColMonetary} {
		r[c] = table.Num(0)
	}
}

func textOrNull(s string) table.Value {
	if s == "" {
		return table.Null()
	}
	return table.Str(s)
}

func knownOrNull(v table.Value) table.Value {
	if s, ok := v.Text(); !ok || s == "" || s == remediate.Unknown {
		return table.Null()
	}
	return v
}
