// Package profile turns cleaned order lines into per-customer behaviour
// (recency, frequency, monetary value, favourites) and joins it onto the
// cleaned customer table to form the segmentation input.
package profile

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/remediate"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// ErrMissingCustomerID is returned when either input lacks the customerid column.
var ErrMissingCustomerID = errors.New("customerid column not found")

// Merged column names.
const (
	ColTotalOrders     = "totalOrders"
	ColTotalSpend      = "totalSpend"
	ColAvgOrderValue   = "avgOrderValue"
	ColLastPurchase    = "lastPurchaseDate"
	ColFirstPurchase   = "firstPurchaseDate"
	ColDaysSinceLast   = "daysSinceLastPurchase"
	ColLifetimeMonths  = "customerLifetimeMonths"
	ColPurchaseFreq    = "purchaseFrequency"
	ColFavPayment      = "favoritePaymentMethod"
	ColFavItem         = "favoriteItem"
	ColFavPurchaseHour = "favoritePurchaseHour"
	ColFavDayPart      = "favoriteDayPart"
	ColRecency         = "recency"
	ColFrequency       = "frequency"
	ColMonetary        = "monetary"
)

// DayParts in tie-break order.
var DayParts = []string{"Night", "Morning", "Afternoon", "Evening"}

// DayPart buckets an hour of day.
func DayPart(hour int) string {
	switch {
	case hour <= 5:
		return "Night"
	case hour <= 11:
		return "Morning"
	case hour <= 17:
		return "Afternoon"
	default:
		return "Evening"
	}
}

// Behaviour is the order history of one customer reduced to metrics.
type Behaviour struct {
	CustomerID     string
	TotalOrders    int
	TotalSpend     float64
	AvgOrderValue  float64
	FirstPurchase  time.Time
	LastPurchase   time.Time
	HasDates       bool
	DaysSinceLast  int
	LifetimeMonths int
	Frequency      float64
	FavPayment     string
	FavItem        string
	FavHour        int // -1 when no purchase time was recorded
	FavDayPart     string
}

type history struct {
	id       string
	orders   int
	spend    float64
	dates    []time.Time
	items    []string
	payments []string
	hours    [24]int
	anyHour  bool
}

// Aggregate groups order lines by customer id. Results keep the order in
// which customers first appear; now anchors recency.
func Aggregate(orders *table.Table, now time.Time) ([]Behaviour, error) {
	if !orders.HasColumn(remediate.ColCustomerID) {
		return nil, ErrMissingCustomerID
	}
	byID := map[string]*history{}
	var order []*history
	for _, r := range orders.Rows {
		id, ok := customerKey(r[remediate.ColCustomerID])
		if !ok {
			continue
		}
		h := byID[id]
		if h == nil {
			h = &history{id: id}
			byID[id] = h
			order = append(order, h)
		}
		h.orders++
		if f, ok := r[remediate.ColTotal].Float(); ok {
			h.spend += f
		}
		if d, ok := dateOf(r[remediate.ColPurchasedAt]); ok {
			h.dates = append(h.dates, d)
		}
		if s, ok := r[remediate.ColItem].Text(); ok && s != "" {
			h.items = append(h.items, s)
		}
		if s, ok := r[remediate.ColPayment].Text(); ok && s != "" {
			h.payments = append(h.payments, s)
		}
		if hr, ok := hourOf(r[remediate.ColPurchaseTm]); ok {
			h.hours[hr]++
			h.anyHour = true
		}
	}

	out := make([]Behaviour, 0, len(order))
	for _, h := range order {
		out = append(out, h.reduce(now))
	}
	return out, nil
}

func (h *history) reduce(now time.Time) Behaviour {
	b := Behaviour{
		CustomerID:  h.id,
		TotalOrders: h.orders,
		TotalSpend:  numeric.Round(h.spend, 2),
		FavHour:     -1,
	}
	if h.orders > 0 {
		b.AvgOrderValue = numeric.Round(h.spend/float64(h.orders), 2)
	}
	if len(h.dates) > 0 {
		b.HasDates = true
		b.FirstPurchase, b.LastPurchase = h.dates[0], h.dates[0]
		for _, d := range h.dates[1:] {
			if d.Before(b.FirstPurchase) {
				b.FirstPurchase = d
			}
			if d.After(b.LastPurchase) {
				b.LastPurchase = d
			}
		}
		b.DaysSinceLast = int(math.Floor(now.Sub(b.LastPurchase).Hours() / 24))
		b.LifetimeMonths = int(b.LastPurchase.Sub(b.FirstPurchase).Hours() / 24 / 30)
	}
	switch {
	case b.LifetimeMonths > 0:
		b.Frequency = numeric.Round(float64(h.orders)/float64(b.LifetimeMonths), 2)
	case h.orders > 0:
		b.Frequency = float64(h.orders)
	}
	b.FavPayment, _ = numeric.Mode(h.payments)
	b.FavItem, _ = numeric.Mode(h.items)
	if h.anyHour {
		var parts [4]int
		best := 0
		for hr, n := range h.hours {
			if n > h.hours[best] {
				best = hr
			}
			parts[dayPartIndex(hr)] += n
		}
		b.FavHour = best
		bp := 0
		for i, n := range parts {
			if n > parts[bp] {
				bp = i
			}
		}
		b.FavDayPart = DayParts[bp]
	}
	return b
}

func dayPartIndex(hour int) int {
	p := DayPart(hour)
	for i, d := range DayParts {
		if d == p {
			return i
		}
	}
	return 0
}

func customerKey(v table.Value) (string, bool) {
	s, ok := v.Text()
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, ok && s != ""
}

func dateOf(v table.Value) (time.Time, bool) {
	switch v.Kind {
	case table.KindDate:
		return v.T, true
	case table.KindString:
		t, _, ok := table.ParseDate(v.S)
		return t, ok
	}
	return time.Time{}, false
}

// hourOf reads the hour from HH:MM or HH:MM:SS.
func hourOf(v table.Value) (int, bool) {
	s, ok := v.Text()
	if !ok {
		return 0, false
	}
	head, _, _ := strings.Cut(strings.TrimSpace(s), ":")
	h, err := strconv.Atoi(head)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
