package remediate

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/KaramelBytes/tidyseg-cli/internal/table"
)

// titleCase upper-cases the first letter after every non-letter and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// coerceAmount strips currency symbols and units and parses what is left.
func coerceAmount(v table.Value) (float64, bool) {
	switch v.Kind {
	case table.KindNumber:
		return v.N, !math.IsNaN(v.N) && !math.IsInf(v.N, 0)
	case table.KindString:
		f, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(v.S, ""), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// upperID trims and upper-cases an identifier; blanks become null.
func upperID(v table.Value) table.Value {
	s, ok := v.Text()
	if !ok {
		return table.Null()
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return table.Null()
	}
	return table.Str(s)
}

var nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// tokenSortRatio scores two strings 0..100 after lower-casing, stripping
// punctuation and sorting their tokens.
func tokenSortRatio(a, b string) int {
	na, nb := sortedTokens(a), sortedTokens(b)
	if na == "" && nb == "" {
		return 100
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(na, nb)
	return int(math.Round(100 * (1 - float64(d)/float64(longest))))
}

func sortedTokens(s string) string {
	fields := strings.Fields(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// bestMatch returns the candidate with the highest tokenSortRatio. Earlier
// candidates win ties.
func bestMatch(s string, candidates []string) (string, int) {
	best, bestScore := "", -1
	for _, c := range candidates {
		if score := tokenSortRatio(s, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}
