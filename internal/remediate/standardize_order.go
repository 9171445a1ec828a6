package remediate

import (
	"math"
	"regexp"
	"strings"

	"github.com/KaramelBytes/tidyseg-cli/internal/numeric"
	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

type paymentCategory struct {
	name    string
	pattern *regexp.Regexp
}

// paymentCategories are tried in order; the first match wins.
var paymentCategories = []paymentCategory{
	{"Cash", regexp.MustCompile(`(?i)\b(?:cash|tunai|otc|counter)\b`)},
	{"Card", regexp.MustCompile(`(?i)\b(?:card|visa|master|credit|debit|amex|credit.?debit)\b`)},
	{"E-Wallet", regexp.MustCompile(`(?i)\b(?:tng|touch\s*n\s*go|grab\s*pay|grabpay|boost|shopee\s*pay|shopeepay|spaylater|duitnow|ewallet|e-?wallet|qr|qr\s*pay|qrcode)\b`)},
	{"Online Banking", regexp.MustCompile(`(?i)\b(?:bank|transfer|fpx|online\s*payment|maybank2u|cimbclicks|duitnow\s*qr|public\s*bank)\b`)},
	{"Auto-Debit", regexp.MustCompile(`(?i)\b(?:auto.?debit|standing|recurring|subscription|auto\s*pay)\b`)},
	{"Cheque", regexp.MustCompile(`(?i)\b(?:cheque|cek|check)\b`)},
}

// categorizePayment maps free text onto a payment category, or "" when
// nothing matches.
func categorizePayment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, c := range paymentCategories {
		if c.pattern.MatchString(s) {
			return c.name
		}
	}
	return ""
}

// standardizeOrders canonicalizes identifiers and item names, splits the
// purchase timestamp into date and time, and coerces amounts to numbers.
func standardizeOrders(_ *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{Stage: stageStandardize, RowsBefore: t.Len(), RowsAfter: t.Len()}

	for _, col := range []string{ColOrderID, ColCustomerID} {
		if t.HasColumn(col) {
			for _, r := range t.Rows {
				r[col] = upperID(r[col])
			}
		}
	}

	if t.HasColumn(ColItem) {
		for _, r := range t.Rows {
			s, ok := r[ColItem].Text()
			s = strings.TrimSpace(s)
			if !ok || s == "" {
				r[ColItem] = table.Null()
				continue
			}
			r[ColItem] = table.Str(titleCase(s))
		}
	}

	if t.HasColumn(ColPurchasedAt) {
		if splitPurchaseTimestamp(t) {
			d.Message = "Purchase dates include a time of day, so a separate 'purchase time' column was derived for segmentation."
		}
	}

	for _, col := range []string{ColPrice, ColTotal} {
		if t.HasColumn(col) {
			for _, r := range t.Rows {
				if f, ok := coerceAmount(r[col]); ok {
					r[col] = table.Num(numeric.Round(f, 2))
				} else {
					r[col] = table.Null()
				}
			}
		}
	}

	if t.HasColumn(ColQuantity) {
		for _, r := range t.Rows {
			if f, ok := coerceAmount(r[ColQuantity]); ok {
				r[ColQuantity] = table.Num(math.RoundToEven(f))
			} else {
				r[ColQuantity] = table.Null()
			}
		}
	}

	if t.HasColumn(ColPayment) {
		for _, r := range t.Rows {
			s, ok := r[ColPayment].Text()
			if !ok {
				continue
			}
			if c := categorizePayment(s); c != "" {
				r[ColPayment] = table.Str(c)
			} else {
				r[ColPayment] = table.Null()
			}
		}
	}
	return d, nil
}

// splitPurchaseTimestamp rewrites purchase date as a date and, when any
// value carried a time of day, adds purchase time. It reports whether the
// time column was created.
func splitPurchaseTimestamp(t *table.Table) bool {
	times := make([]table.Value, len(t.Rows))
	anyTime := false
	for i, r := range t.Rows {
		raw, ok := r[ColPurchasedAt].Text()
		if !ok {
			continue
		}
		ts, hasTime, ok := table.ParseDate(raw)
		if !ok {
			r[ColPurchasedAt] = table.Null()
			continue
		}
		r[ColPurchasedAt] = table.Date(ts)
		if hasTime {
			times[i] = table.Str(ts.Format("15:04:05"))
			anyTime = true
		}
	}
	if !anyTime {
		return false
	}
	t.AddColumn(ColPurchaseTm)
	for i, r := range t.Rows {
		r[ColPurchaseTm] = times[i]
	}
	return true
}
