package remediate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

var dobLayouts = []string{
	"02/01/2006", "2/1/2006",
	"01-02-06", "1-2-06",
	"2006-01-02",
	"02-Jan-2006", "2-Jan-2006",
	"02-01-2006", "2-1-2006",
}

var genderMap = map[string]string{
	"m": "Male", "male": "Male", "man": "Male", "boy": "Male",
	"f": "Female", "female": "Female", "woman": "Female", "girl": "Female",
}

var cityAliases = map[string]string{
	"Kl": "Kuala Lumpur",
	"Pj": "Petaling Jaya",
}

var stateAliases = map[string]string{
	"Kuala Lumpur": "Wilayah Persekutuan Kuala Lumpur",
	"Kl":           "Wilayah Persekutuan Kuala Lumpur",
	"Labuan":       "Wilayah Persekutuan Labuan",
	"Putrajaya":    "Wilayah Persekutuan Putrajaya",
}

const stateMatchThreshold = 80

var cityBadChars = regexp.MustCompile(`[^A-Za-z\s'\-]`)

// standardizeCustomers canonicalizes identifiers, derives age fields from
// date of birth and normalizes gender and location columns.
func standardizeCustomers(e *env, t *table.Table) (StageDelta, error) {
	d := StageDelta{Stage: stageStandardize, RowsBefore: t.Len(), RowsAfter: t.Len()}
	var notes []string

	if t.HasColumn(ColCustomerID) {
		for _, r := range t.Rows {
			r[ColCustomerID] = upperID(r[ColCustomerID])
		}
	}

	if t.HasColumn(ColDOB) {
		deriveAgeFromDOB(t, e.now())
		notes = append(notes, "Date of birth was converted into 'age' and 'age_group' for segmentation; the original date of birth column was removed.")
	} else if t.HasColumn(ColAge) {
		for _, r := range t.Rows {
			if f, ok := coerceAmount(r[ColAge]); ok {
				r[ColAge] = table.Num(f)
			} else {
				r[ColAge] = table.Null()
			}
		}
	}
	if t.HasColumn(ColAge) {
		deriveAgeGroups(t)
	}

	if t.HasColumn(ColGender) {
		for _, r := range t.Rows {
			r[ColGender] = table.Str(normalizeGender(r[ColGender]))
		}
	}

	if t.HasColumn(ColCity) {
		n := 0
		for _, r := range t.Rows {
			c := normalizeCity(r[ColCity])
			if c == Unknown {
				n++
			}
			r[ColCity] = table.Str(c)
		}
		if n > 0 {
			notes = append(notes, plural(n, "city value was", "city values were")+" missing or unrecognizable and marked Unknown.")
		}
	}

	if t.HasColumn(ColState) {
		cache := map[string]string{}
		names := e.opt.Regions.Names()
		for _, r := range t.Rows {
			raw, _ := r[ColState].Text()
			s, ok := cache[raw]
			if !ok {
				s = e.matchState(raw, names)
				cache[raw] = s
			}
			r[ColState] = table.Str(s)
		}
	}

	d.Message = strings.Join(notes, "\n")
	return d, nil
}

func deriveAgeFromDOB(t *table.Table, now time.Time) {
	t.AddColumn(ColAge)
	for _, r := range t.Rows {
		raw, ok := r[ColDOB].Text()
		if !ok {
			r[ColAge] = table.Null()
			continue
		}
		dob, ok := table.ParseDateLayouts(raw, dobLayouts)
		if !ok {
			r[ColAge] = table.Null()
			continue
		}
		r[ColAge] = table.Num(float64(ageAt(dob, now)))
	}
	t.DropColumn(ColDOB)
}

// ageAt returns whole years between dob and now.
func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func deriveAgeGroups(t *table.Table) {
	t.AddColumn(ColAgeGroup)
	for _, r := range t.Rows {
		r[ColAgeGroup] = table.Str(ageGroup(r[ColAge]))
	}
}

func ageGroup(v table.Value) string {
	age, ok := v.Float()
	if !ok {
		return Unknown
	}
	switch {
	case age < 18:
		return "Below 18"
	case age <= 24:
		return "18-24"
	case age <= 34:
		return "25-34"
	case age <= 44:
		return "35-44"
	case age <= 54:
		return "45-54"
	case age <= 64:
		return "55-64"
	default:
		return "Above 65"
	}
}

func normalizeGender(v table.Value) string {
	s, _ := v.Text()
	if g, ok := genderMap[strings.ToLower(strings.TrimSpace(s))]; ok {
		return g
	}
	return Unknown
}

func normalizeCity(v table.Value) string {
	s, _ := v.Text()
	s = strings.TrimSpace(titleCase(s))
	if alias, ok := cityAliases[s]; ok {
		s = alias
	}
	if suspiciousCity(s) {
		return Unknown
	}
	return s
}

func suspiciousCity(name string) bool {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < 2 || n > 50 {
		return true
	}
	if cityBadChars.MatchString(name) || hasRepeatedRun(name, 4) {
		return true
	}
	switch strings.ToLower(name) {
	case "other", "others", "unknown":
		return true
	}
	return false
}

// hasRepeatedRun reports whether any character repeats n or more times in a row.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

// matchState maps a raw state to a canonical region: aliases first, then an
// exact member, then the closest fuzzy match scoring at least 80.
func (e *env) matchState(raw string, names []string) string {
	s := strings.TrimSpace(titleCase(raw))
	if s == "" || s == Unknown {
		return Unknown
	}
	if alias, ok := stateAliases[s]; ok {
		return alias
	}
	if c, ok := e.opt.Regions.Canonical(s); ok {
		return c
	}
	if match, score := bestMatch(s, names); score >= stateMatchThreshold {
		return match
	}
	return Unknown
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
