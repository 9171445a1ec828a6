package remediate

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

var orderCriticalColumns = []string{ColOrderID, ColCustomerID, ColPurchasedAt, ColItem}

func orderCascade() []cascadeStep {
	return []cascadeStep{
		{Name: "drop_missing_identifiers", Columns: orderCriticalColumns, Run: dropMissingCritical},
		{Name: "drop_missing_purchase_time", Columns: []string{ColPurchaseTm}, Run: dropMissingPurchaseTime},
		{Name: "drop_missing_amounts", Columns: []string{ColPrice, ColTotal}, Run: dropMissingAmounts},
		{Name: "invalidate_non_positive_amounts", Columns: []string{ColPrice, ColTotal}, Run: invalidateAmounts},
		{Name: "derive_quantity", Columns: []string{ColQuantity, ColPrice, ColTotal}, Run: deriveQuantity},
		{Name: "drop_missing_price", Columns: []string{ColPrice}, Run: dropMissingPrice},
		{Name: "derive_total", Columns: []string{ColTotal, ColPrice, ColQuantity}, Run: deriveTotal},
		{Name: "fill_payment_method", Columns: []string{ColPayment}, Run: fillPaymentMethod},
	}
}

func present(t *table.Table, cols []string) []string {
	var out []string
	for _, c := range cols {
		if t.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

func dropMissingCritical(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len()}
	cols := present(t, Policy(Order).Dropping(orderCriticalColumns...))
	n := dropWhereMissing(t, cols)
	d.RowsAfter = t.Len()
	d.remove("orders without order id, customer id, purchase date or item", n)
	if n > 0 {
		d.Message = fmt.Sprintf("%s removed: missing %s.", plural(n, "order was", "orders were"), strings.Join(cols, ", "))
	}
	return d, nil
}

func dropMissingPurchaseTime(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColPurchaseTm) {
		return d, nil
	}
	n := dropWhereMissing(t, Policy(Order).Dropping(ColPurchaseTm))
	d.RowsAfter = t.Len()
	d.remove("orders without purchase time", n)
	return d, nil
}

func dropMissingAmounts(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	cols := present(t, []string{ColPrice, ColTotal})
	if len(cols) == 0 {
		d.warn("neither %q nor %q exists; amounts cannot be checked", ColPrice, ColTotal)
		return d, nil
	}
	n := t.Filter(func(r table.Record) bool {
		for _, c := range cols {
			if !r[c].IsNull() {
				return true
			}
		}
		return false
	})
	d.RowsAfter = t.Len()
	d.remove("orders without any price or total spend", n)
	return d, nil
}

// invalidateAmounts coerces amounts to numbers and nulls zero or negative values.
func invalidateAmounts(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	for _, c := range present(t, []string{ColPrice, ColTotal}) {
		n := 0
		for _, r := range t.Rows {
			if r[c].IsNull() {
				continue
			}
			f, ok := coerceAmount(r[c])
			if !ok || f <= 0 {
				r[c] = table.Null()
				n++
				continue
			}
			r[c] = table.Num(numeric.Round(f, 2))
		}
		if n > 0 {
			d.warn("%d value(s) in %q were zero, negative or invalid and were cleared", n, c)
		}
	}
	return d, nil
}

// deriveQuantity computes missing quantities as total/price and defaults the
// rest to the policy fill.
func deriveQuantity(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColQuantity) {
		return d, nil
	}
	def := 1.0
	if p, ok := Policy(Order).Get(ColQuantity); ok && p.Fill != "" {
		if f, ok := table.ParseNumber(p.Fill); ok {
			def = f
		}
	}
	derived, defaulted := 0, 0
	for _, r := range t.Rows {
		if !r[ColQuantity].IsNull() {
			continue
		}
		price, okP := r[ColPrice].Float()
		total, okT := r[ColTotal].Float()
		if okP && okT && price > 0 {
			r[ColQuantity] = table.Num(math.RoundToEven(total / price))
			derived++
			continue
		}
		r[ColQuantity] = table.Num(def)
		defaulted++
	}
	d.fill("purchase quantity (total / price)", derived)
	d.fill("purchase quantity (default)", defaulted)
	return d, nil
}

func dropMissingPrice(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColPrice) {
		return d, nil
	}
	n := dropWhereMissing(t, Policy(Order).Dropping(ColPrice))
	d.RowsAfter = t.Len()
	d.remove("orders without item price", n)
	return d, nil
}

// deriveTotal computes missing totals as price x quantity, then drops rows
// still without a total.
func deriveTotal(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColTotal) {
		return d, nil
	}
	derived := 0
	if t.HasColumn(ColPrice) && t.HasColumn(ColQuantity) {
		for _, r := range t.Rows {
			if !r[ColTotal].IsNull() {
				continue
			}
			price, okP := r[ColPrice].Float()
			qty, okQ := r[ColQuantity].Float()
			if okP && okQ {
				r[ColTotal] = table.Num(numeric.Round(price*qty, 2))
				derived++
			}
		}
	}
	n := t.Filter(func(r table.Record) bool { return !r[ColTotal].IsNull() })
	d.RowsAfter = t.Len()
	d.fill("total spend (price x quantity)", derived)
	d.remove("orders without total spend after derivation", n)
	return d, nil
}

func fillPaymentMethod(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{RowsBefore: t.Len(), RowsAfter: t.Len()}
	if !t.HasColumn(ColPayment) {
		return d, nil
	}
	fill := Unknown
	if p, ok := Policy(Order).Get(ColPayment); ok && p.Fill != "" {
		fill = p.Fill
	}
	n := 0
	for _, r := range t.Rows {
		if s, ok := r[ColPayment].Text(); !ok || strings.TrimSpace(s) == "" {
			r[ColPayment] = table.Str(fill)
			n++
		}
	}
	d.fill("transaction method (Unknown)", n)
	return d, nil
}
