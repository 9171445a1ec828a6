package segment

import "fmt"

// Pair is a recommended two-feature segmentation.
type Pair struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Features []string `json:"features"`
}

// Pairs lists the recommended feature pairs.
var Pairs = []Pair{
	{"recency_frequency", "Recency × Frequency", []string{"recency", "frequency"}},
	{"monetary_frequency", "Monetary × Frequency", []string{"monetary", "frequency"}},
	{"state_spend", "State × Total Spend", []string{"state", "totalSpend"}},
	{"city_orders", "City × Total Orders", []string{"city", "totalOrders"}},
	{"aov_recency", "Average Order Value × Recency", []string{"avgOrderValue", "recency"}},
	{"lifetime_spend", "Customer Lifetime Months × Total Spend", []string{"customerLifetimeMonths", "totalSpend"}},
	{"payment_spend", "Favorite Payment Method × Total Spend", []string{"favoritePaymentMethod", "totalSpend"}},
	{"item_frequency", "Favorite Item × Frequency", []string{"favoriteItem", "frequency"}},
	{"purchasehour_recency", "Favorite Purchase Hour × Recency", []string{"favoritePurchaseHour", "recency"}},
	{"daypart_frequency", "Favorite Day Part × Frequency", []string{"favoriteDayPart", "frequency"}},
}

// PairByID looks up a recommended pair.
func PairByID(id string) (Pair, error) {
	for _, p := range Pairs {
		if p.ID == id {
			return p, nil
		}
	}
	return Pair{}, fmt.Errorf("unknown pair %q", id)
}

// AvailablePairs keeps the pairs whose features are all among columns.
func AvailablePairs(columns []string) []Pair {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var out []Pair
	for _, p := range Pairs {
		ok := true
		for _, f := range p.Features {
			ok = ok && have[f]
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}
