package render

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// SortNatural sorts names in human order, so img2.png precedes img10.png.
func SortNatural(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
}

func naturalLess(a, b string) bool {
	ka, kb := naturalKey(a), naturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if ka[i] == kb[i] {
			continue
		}
		na, aOK := parseUint(ka[i])
		nb, bOK := parseUint(kb[i])
		switch {
		case aOK && bOK && na != nb:
			return na < nb
		case aOK && bOK:
			// Numerically equal runs ("2" vs "02"): later parts decide.
		default:
			return ka[i] < kb[i]
		}
	}
	if len(ka) != len(kb) {
		return len(ka) < len(kb)
	}
	return a < b
}

// naturalKey splits a name into lowercase digit and non-digit runs.
func naturalKey(s string) []string {
	s = strings.ToLower(s)
	var parts []string
	start := 0
	digits := false
	for i, r := range s {
		d := unicode.IsDigit(r)
		if i == 0 {
			digits = d
			continue
		}
		if d != digits {
			parts = append(parts, s[start:i])
			start = i
			digits = d
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func parseUint(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}
