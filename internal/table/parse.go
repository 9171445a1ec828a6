package table

import (
	"strconv"
	"strings"
	"time"
)

// naTokens are the cell contents read as missing.
var naTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "-nan": {}, "null": {}, "none": {},
	"#n/a": {}, "#n/a n/a": {}, "#na": {}, "<na>": {}, "1.#ind": {}, "1.#qnan": {},
}

// IsNAToken reports whether s (after trimming) denotes a missing value.
func IsNAToken(s string) bool {
	_, ok := naTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseNumber parses s as a number, tolerating thousands separators, a
// decimal comma and stray whitespace.
func ParseNumber(s string) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, true
	}
	dec := '.'
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && cpos > dpos:
		dec = ','
	case cpos >= 0 && dpos < 0:
		// 1,234 is a thousands group; 1,5 is a decimal comma
		if len(raw)-cpos-1 != 3 {
			dec = ','
		}
	}
	for _, sep := range []rune{',', '.', ' '} {
		if sep != dec {
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"02-01-2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-Jan-2006",
	"02 Jan 2006",
	"01-02-06",
}

// ParseDate parses s with day-first layouts. hasTime reports whether the
// matched layout carried a time-of-day component.
func ParseDate(s string) (t time.Time, hasTime bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, l := range dateLayouts {
		if parsed, err := time.Parse(l, s); err == nil {
			return parsed, strings.Contains(l, "15"), true
		}
	}
	return time.Time{}, false, false
}

// ParseDateLayouts tries only the given layouts, in order.
func ParseDateLayouts(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if parsed, err := time.Parse(l, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// IsNumericColumn reports whether every non-null value of col parses as a
// number and at least one does.
func (t *Table) IsNumericColumn(col string) bool {
	seen := false
	for _, r := range t.Rows {
		v := r[col]
		if v.IsNull() {
			continue
		}
		if v.Kind == KindBool || v.Kind == KindDate {
			return false
		}
		if _, ok := v.Float(); !ok {
			return false
		}
		seen = true
	}
	return seen
}
