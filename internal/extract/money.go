package extract

import (
	"regexp"
	"strings"
)

// MoneyPattern matches an optional dollar sign, optional whitespace, digits with
// optional thousands separators and an optional one or two digit fraction.
const MoneyPattern = `\$?\s*[0-9][\d,]*(?:\.\d{1,2})?`

// YearPattern matches a four digit year between 1900 and 2100 on word boundaries.
const YearPattern = `\b(?:19\d{2}|20\d{2}|2100)\b`

var (
	moneyRe = regexp.MustCompile(MoneyPattern)
	yearRe  = regexp.MustCompile(YearPattern)
)

// FindMoneyToken returns the first money-like substring of text, scanning left
// to right. The token is not converted to a number; surrounding whitespace is
// trimmed but the dollar sign and separators are kept as written.
func FindMoneyToken(text string) (string, bool) {
	m := moneyRe.FindString(NormalizeSpace(text))
	m = strings.TrimSpace(m)
	if m == "" {
		return "", false
	}
	return m, true
}

// FindYearToken returns the first plausible year token in text.
func FindYearToken(text string) (string, bool) {
	m := yearRe.FindString(text)
	return m, m != ""
}
