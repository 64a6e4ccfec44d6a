package normalize

import (
	"strconv"
	"strings"
)

// Year bounds accepted for year-established values, inclusive.
const (
	MinYear = 1900
	MaxYear = 2100
)

// ToNumber converts a money-like token such as "$1,234.56" into a number.
// Commas are always thousands separators. Empty residue, a lone "-" or "--",
// and anything strconv cannot parse report false rather than zero.
func ToNumber(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	switch s {
	case "", "-", "--":
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToNumberPtr is ToNumber for optional tokens.
func ToNumberPtr(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	f, ok := ToNumber(*raw)
	if !ok {
		return nil
	}
	return &f
}

// YearInRange reports whether y lies within [MinYear, MaxYear].
func YearInRange(y int) bool {
	return y >= MinYear && y <= MaxYear
}

// ParseYear converts a year token and enforces YearInRange.
func ParseYear(raw string) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !YearInRange(y) {
		return 0, false
	}
	return y, true
}
