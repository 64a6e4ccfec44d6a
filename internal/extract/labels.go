package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// LabelRule describes one labeled-value scan: a label pattern, the characters
// allowed between label and value, how many of them may be skipped, and the
// value pattern to capture. Labels match case-insensitively.
type LabelRule struct {
	Name   string
	Label  string
	Gap    string
	Window int // 0 means unbounded
	Value  string

	re *regexp.Regexp
}

// NewLabelRule compiles a rule. It returns an error when any fragment is not a
// valid regular expression.
func NewLabelRule(name, label, gap string, window int, value string) (LabelRule, error) {
	r := LabelRule{Name: name, Label: label, Gap: gap, Window: window, Value: value}
	if gap == "" {
		gap = `[\s:]`
	}
	rep := "*?"
	if window > 0 {
		rep = fmt.Sprintf("{0,%d}?", window)
	}
	expr := `(?i)(?:` + label + `)` + gap + rep + `(` + value + `)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return LabelRule{}, fmt.Errorf("label rule %s: %w", name, err)
	}
	r.re = re
	return r, nil
}

// MustLabelRule is like NewLabelRule but panics on an invalid pattern. It is
// meant for package-level rule tables.
func MustLabelRule(name, label, gap string, window int, value string) LabelRule {
	r, err := NewLabelRule(name, label, gap, window, value)
	if err != nil {
		panic(err)
	}
	return r
}

// Find returns the first value captured after the rule's label in text.
// Non-breaking spaces are normalized before matching.
func (r LabelRule) Find(text string) (string, bool) {
	if r.re == nil {
		return "", false
	}
	m := r.re.FindStringSubmatch(NormalizeSpace(text))
	if len(m) < 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return "", false
	}
	return v, true
}

// Scan tries rules in order and stops at the first one that yields a value.
// Later rules are not consulted once an earlier one matches.
func Scan(text string, rules []LabelRule) (LabelRule, string, bool) {
	for _, r := range rules {
		if v, ok := r.Find(text); ok {
			return r, v, true
		}
	}
	return LabelRule{}, "", false
}
