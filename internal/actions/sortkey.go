package actions

import (
	"strconv"
	"strings"
)

// sortKeySuffix is appended to every generated prefix. Fractional-index
// schemes reserve the suffix for future between-insertion splits; the table
// engine never needs a between-insert (creation always appends to the top
// per spec.md 3.2 invariant 3), so a constant suffix is sufficient here.
const sortKeySuffix = "a"

// nextSortKey computes a sort key strictly greater than every key in
// existing, per spec.md 4.3 createObject: "(max_prefix+1)|a". Keys are of
// the form "<prefix>|<suffix>"; only the integer prefix participates in
// ordering.
func nextSortKey(existing []string) string {
	max := 0
	for _, k := range existing {
		prefix, _, found := strings.Cut(k, "|")
		if !found {
			prefix = k
		}
		n, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return strconv.Itoa(max+1) + "|" + sortKeySuffix
}
